package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"sort"

	"github.com/regulaworks/corpagent/internal/domain"
)

// ObjectStore is the write side of an artifact backend. S3Client and
// FSStore both satisfy it.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, body []byte) error
}

// ArtifactStore persists the outputs of one batch run: the machine-readable
// report, the markdown summary and one annotated copy per analyzed document.
type ArtifactStore struct {
	objects ObjectStore
}

func NewArtifactStore(objects ObjectStore) *ArtifactStore {
	return &ArtifactStore{objects: objects}
}

// SaveBatch writes all artifacts for a batch under batches/<batchID>/ and
// returns the stored keys. The annotated map is keyed by original filename.
func (s *ArtifactStore) SaveBatch(ctx context.Context, batchID string, report *domain.AnalysisReport, summary string, annotated map[string]string) ([]string, error) {
	prefix := path.Join("batches", batchID)

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	keys := []string{
		path.Join(prefix, "report.json"),
		path.Join(prefix, "report.md"),
	}
	bodies := map[string]struct {
		contentType string
		body        []byte
	}{
		keys[0]: {"application/json", reportJSON},
		keys[1]: {"text/markdown", []byte(summary)},
	}

	filenames := make([]string, 0, len(annotated))
	for name := range annotated {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)
	for _, name := range filenames {
		key := path.Join(prefix, "annotated", name)
		keys = append(keys, key)
		bodies[key] = struct {
			contentType string
			body        []byte
		}{"text/plain", []byte(annotated[name])}
	}

	for _, key := range keys {
		obj := bodies[key]
		if err := s.objects.Put(ctx, key, obj.contentType, obj.body); err != nil {
			return nil, err
		}
	}

	log.Printf("batch %s: stored %d artifact(s)", batchID, len(keys))
	return keys, nil
}
