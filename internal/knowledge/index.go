// Package knowledge holds the embedded regulatory corpus and answers
// nearest-passage queries against it.
package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/regulaworks/corpagent/internal/domain"
)

const excerptMaxChars = 220

// Embedder is the embedding collaborator contract. Implementations must not
// be assumed to produce any particular vector dimensionality.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SourceInput is raw source material to be chunked and embedded on reindex.
type SourceInput struct {
	ID         string
	Title      string
	SourceType domain.SourceType
	Text       string
}

// snapshot is one immutable generation of the index. Readers always see a
// complete snapshot, old or new, never a partially built one.
type snapshot struct {
	sources []domain.KnowledgeSource
	chunks  []domain.Chunk // flat, in insertion order (the tie-break order)
}

// Index is the shared, read-mostly knowledge index. Retrieve is safe for
// concurrent use; Reindex builds a whole new snapshot off to the side and
// publishes it with a single atomic swap.
type Index struct {
	embedder Embedder
	chunkCfg ChunkConfig

	snap atomic.Pointer[snapshot]

	// reindexMu serializes writers only; readers never take it.
	reindexMu sync.Mutex
}

// NewIndex creates an empty Index using the given embedder. A nil embedder
// is allowed; Reindex and non-trivial Retrieve calls then report the
// embedding backend unavailable.
func NewIndex(embedder Embedder) *Index {
	return NewIndexWithConfig(embedder, DefaultChunkConfig())
}

// NewIndexWithConfig creates an empty Index with explicit chunking config.
func NewIndexWithConfig(embedder Embedder, cfg ChunkConfig) *Index {
	idx := &Index{embedder: embedder, chunkCfg: cfg}
	idx.snap.Store(&snapshot{})
	return idx
}

// Len returns the number of chunks in the current snapshot.
func (idx *Index) Len() int {
	return len(idx.snap.Load().chunks)
}

// Sources returns the sources of the current snapshot.
func (idx *Index) Sources() []domain.KnowledgeSource {
	return idx.snap.Load().sources
}

// Reindex rebuilds the index from raw sources: fixed chunking policy, one
// embedding per chunk, then an atomic snapshot swap. The old index stays
// queryable until the new one is fully built. An error leaves the old
// snapshot in place.
func (idx *Index) Reindex(ctx context.Context, inputs []SourceInput) error {
	idx.reindexMu.Lock()
	defer idx.reindexMu.Unlock()

	if idx.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	next := &snapshot{
		sources: make([]domain.KnowledgeSource, 0, len(inputs)),
	}
	indexedAt := time.Now().UTC()

	for _, in := range inputs {
		src := domain.KnowledgeSource{
			ID:         in.ID,
			Title:      in.Title,
			SourceType: in.SourceType,
			IndexedAt:  indexedAt,
		}
		if err := domain.ValidateKnowledgeSource(&src); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}

		pieces := chunkText(in.Text, idx.chunkCfg)
		for i, piece := range pieces {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("reindex cancelled: %w", err)
			}
			embedding, err := idx.embedder.GenerateEmbedding(ctx, piece)
			if err != nil {
				return fmt.Errorf("reindex: embed chunk %d of source %s: %w", i, in.ID, err)
			}
			chunk := domain.Chunk{
				ID:         fmt.Sprintf("%s-c%d", in.ID, i),
				SourceID:   in.ID,
				ChunkIndex: i,
				Text:       piece,
				Embedding:  embedding,
			}
			src.Chunks = append(src.Chunks, chunk)
			next.chunks = append(next.chunks, chunk)
		}
		next.sources = append(next.sources, src)
	}

	idx.snap.Store(next)
	return nil
}

// Replace installs an already-embedded snapshot, bypassing chunking and the
// embedding backend. Chunk order within and across sources is preserved.
func (idx *Index) Replace(sources []domain.KnowledgeSource) {
	idx.reindexMu.Lock()
	defer idx.reindexMu.Unlock()

	next := &snapshot{sources: sources}
	for _, src := range sources {
		next.chunks = append(next.chunks, src.Chunks...)
	}
	idx.snap.Store(next)
}

// Retrieve embeds the query and returns the top-k chunks by cosine
// similarity, scores mapped to [0,1], sorted descending with ties broken by
// chunk insertion order. An empty index yields an empty result, not an error.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	result := domain.RetrievalResult{Query: query}
	if k <= 0 || strings.TrimSpace(query) == "" {
		return result, nil
	}

	snap := idx.snap.Load()
	if len(snap.chunks) == 0 {
		return result, nil
	}
	if idx.embedder == nil {
		return result, domain.ErrEmbeddingUnavailable
	}

	queryEmbedding, err := idx.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return result, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding,
			"embedding backend unavailable", err)
	}

	type scored struct {
		order int
		match domain.RetrievalMatch
	}
	candidates := make([]scored, 0, len(snap.chunks))
	for i, chunk := range snap.chunks {
		score, ok := cosineScore(queryEmbedding, chunk.Embedding)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{
			order: i,
			match: domain.RetrievalMatch{
				SourceID: chunk.SourceID,
				ChunkID:  chunk.ID,
				Score:    score,
				Excerpt:  makeExcerpt(chunk.Text),
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	for _, c := range candidates {
		result.Matches = append(result.Matches, c.match)
	}
	return result, nil
}

// cosineScore maps cosine similarity from [-1,1] to [0,1]. Vectors of
// mismatched dimensionality or zero magnitude are skipped rather than
// treated as errors.
func cosineScore(a, b []float32) (float32, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return float32((cos + 1) / 2), true
}

func makeExcerpt(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	runes := []rune(clean)
	if len(runes) <= excerptMaxChars {
		return clean
	}
	return string(runes[:excerptMaxChars-3]) + "..."
}
