package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/regulaworks/corpagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns preset vectors per exact text, with a fallback for
// anything unlisted.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallback, nil
}

func testSources() []SourceInput {
	return []SourceInput{
		{
			ID:         "companies-reg-art6",
			Title:      "ADGM Companies Regulations 2020, Article 6",
			SourceType: domain.SourceTypeRegulation,
			Text:       "All companies incorporated in ADGM are subject to ADGM jurisdiction.",
		},
		{
			ID:         "companies-reg-art29",
			Title:      "ADGM Companies Regulations 2020, Article 29",
			SourceType: domain.SourceTypeRegulation,
			Text:       "Every company must maintain a registered office address within ADGM.",
		},
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	idx := NewIndex(&stubEmbedder{fallback: []float32{1, 0, 0}})

	result, err := idx.Retrieve(context.Background(), "registered office", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Equal(t, "registered office", result.Query)
}

func TestReindexAndRetrieve(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"All companies incorporated in ADGM are subject to ADGM jurisdiction.": {1, 0, 0},
			"Every company must maintain a registered office address within ADGM.": {0, 1, 0},
			"registered office": {0, 1, 0},
		},
		fallback: []float32{0, 0, 1},
	}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Reindex(context.Background(), testSources()))
	assert.Equal(t, 2, idx.Len())

	result, err := idx.Retrieve(context.Background(), "registered office", 5)
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)

	assert.Equal(t, "companies-reg-art29", result.Matches[0].SourceID)
	assert.InDelta(t, 1.0, float64(result.Matches[0].Score), 1e-6)
	assert.GreaterOrEqual(t, result.Matches[0].Score, result.Matches[1].Score)
	assert.Contains(t, result.Matches[0].Excerpt, "registered office")
}

func TestRetrieveLimitsToK(t *testing.T) {
	embedder := &stubEmbedder{fallback: []float32{1, 1, 0}}
	idx := NewIndex(embedder)

	inputs := make([]SourceInput, 6)
	for i := range inputs {
		inputs[i] = SourceInput{
			ID:         fmt.Sprintf("src%d", i),
			Title:      fmt.Sprintf("Source %d", i),
			SourceType: domain.SourceTypeGuideline,
			Text:       fmt.Sprintf("guideline text %d", i),
		}
	}
	require.NoError(t, idx.Reindex(context.Background(), inputs))

	result, err := idx.Retrieve(context.Background(), "guideline", 3)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 3)
	for i := 1; i < len(result.Matches); i++ {
		assert.GreaterOrEqual(t, result.Matches[i-1].Score, result.Matches[i].Score)
	}
}

func TestRetrieveTieBreakByInsertionOrder(t *testing.T) {
	// Identical embeddings everywhere: every score ties, so order must be
	// chunk insertion order, deterministically.
	embedder := &stubEmbedder{fallback: []float32{1, 0}}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Reindex(context.Background(), testSources()))

	result, err := idx.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "companies-reg-art6-c0", result.Matches[0].ChunkID)
	assert.Equal(t, "companies-reg-art29-c0", result.Matches[1].ChunkID)
}

func TestReindexFailureKeepsOldSnapshot(t *testing.T) {
	embedder := &stubEmbedder{fallback: []float32{1, 0}}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Reindex(context.Background(), testSources()))
	require.Equal(t, 2, idx.Len())

	embedder.err = errors.New("backend down")
	err := idx.Reindex(context.Background(), []SourceInput{{
		ID: "new", Title: "New", SourceType: domain.SourceTypeGuideline, Text: "new text",
	}})
	require.Error(t, err)

	// Old snapshot still serves.
	assert.Equal(t, 2, idx.Len())
	assert.Len(t, idx.Sources(), 2)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{fallback: []float32{1, 0}}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Reindex(context.Background(), testSources()))

	embedder.err = errors.New("backend down")
	_, err := idx.Retrieve(context.Background(), "query", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
}

func TestRetrieveSkipsMismatchedDimensions(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"All companies incorporated in ADGM are subject to ADGM jurisdiction.": {1, 0, 0},
			"Every company must maintain a registered office address within ADGM.": {1, 0}, // wrong dims
			"query": {1, 0, 0},
		},
		fallback: []float32{1, 0, 0},
	}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Reindex(context.Background(), testSources()))

	result, err := idx.Retrieve(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "companies-reg-art6", result.Matches[0].SourceID)
}

func TestRetrieveZeroKOrEmptyQuery(t *testing.T) {
	idx := NewIndex(&stubEmbedder{fallback: []float32{1}})
	require.NoError(t, idx.Reindex(context.Background(), testSources()))

	result, err := idx.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)

	result, err = idx.Retrieve(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestRetrieveWithoutEmbedderOnRestoredSnapshot(t *testing.T) {
	// The daemon restores a persisted snapshot even when no embedding client
	// is configured. Retrieval must degrade, not panic.
	idx := NewIndex(nil)
	idx.Replace([]domain.KnowledgeSource{
		{
			ID:         "companies-reg-art29",
			Title:      "ADGM Companies Regulations 2020, Article 29",
			SourceType: domain.SourceTypeRegulation,
			Chunks: []domain.Chunk{
				{ID: "companies-reg-art29-c0", SourceID: "companies-reg-art29", ChunkIndex: 0,
					Text: "Every company must maintain a registered office address within ADGM.", Embedding: []float32{0, 1, 0}},
			},
		},
	})
	require.Equal(t, 1, idx.Len())

	result, err := idx.Retrieve(context.Background(), "registered office", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
	assert.Empty(t, result.Matches)
}

func TestReindexWithoutEmbedder(t *testing.T) {
	idx := NewIndex(nil)
	err := idx.Reindex(context.Background(), testSources())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
	assert.Equal(t, 0, idx.Len())
}

func TestMakeExcerptKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("é", excerptMaxChars+40)
	excerpt := makeExcerpt(long)
	assert.True(t, utf8.ValidString(excerpt))
	assert.Len(t, []rune(excerpt), excerptMaxChars)
	assert.True(t, strings.HasSuffix(excerpt, "..."))

	short := "Article 29: registered office"
	assert.Equal(t, short, makeExcerpt(short))
}

func TestCosineScore(t *testing.T) {
	score, ok := cosineScore([]float32{1, 0}, []float32{1, 0})
	require.True(t, ok)
	assert.InDelta(t, 1.0, float64(score), 1e-6)

	score, ok = cosineScore([]float32{1, 0}, []float32{-1, 0})
	require.True(t, ok)
	assert.InDelta(t, 0.0, float64(score), 1e-6)

	score, ok = cosineScore([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	assert.InDelta(t, 0.5, float64(score), 1e-6)

	_, ok = cosineScore([]float32{1, 0}, []float32{1})
	assert.False(t, ok)

	_, ok = cosineScore([]float32{0, 0}, []float32{0, 0})
	assert.False(t, ok)
}
