package domain

import (
	"fmt"
	"time"
)

// SourceType represents the kind of regulatory source material.
type SourceType string

const (
	SourceTypeRegulation SourceType = "regulation"
	SourceTypeGuideline  SourceType = "guideline"
	SourceTypeForm       SourceType = "form"
	SourceTypeTemplate   SourceType = "template"
)

// KnowledgeSource is a regulatory source document held by the knowledge
// index. Chunks are the retrieval unit; embeddings are opaque fixed-length
// vectors produced by the external embedding collaborator.
type KnowledgeSource struct {
	ID         string
	Title      string
	SourceType SourceType
	Chunks     []Chunk
	IndexedAt  time.Time
}

// Chunk is a bounded span of source text with its embedding.
type Chunk struct {
	ID         string
	SourceID   string
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// RetrievalMatch is a single scored match from the knowledge index.
type RetrievalMatch struct {
	SourceID string
	ChunkID  string
	Score    float32 // cosine similarity mapped to [0,1]
	Excerpt  string
}

// RetrievalResult is an ordered set of matches for a query, sorted by
// descending score with ties broken by chunk insertion order. An empty
// match list is a valid no-match result, not an error.
type RetrievalResult struct {
	Query   string
	Matches []RetrievalMatch
}

// TopScore returns the best match score, or 0 when there are no matches.
func (r RetrievalResult) TopScore() float32 {
	if len(r.Matches) == 0 {
		return 0
	}
	return r.Matches[0].Score
}

// ValidateKnowledgeSource validates a KnowledgeSource instance.
func ValidateKnowledgeSource(s *KnowledgeSource) error {
	if s == nil {
		return fmt.Errorf("knowledge source cannot be nil")
	}
	if s.ID == "" {
		return fmt.Errorf("knowledge source ID is required")
	}
	if s.Title == "" {
		return fmt.Errorf("knowledge source Title is required")
	}
	if !isValidSourceType(s.SourceType) {
		return fmt.Errorf("knowledge source SourceType is invalid: %s", s.SourceType)
	}
	return nil
}

// isValidSourceType checks if a SourceType is valid.
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeRegulation, SourceTypeGuideline, SourceTypeForm, SourceTypeTemplate:
		return true
	}
	return false
}
