package classify

import (
	"testing"

	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	cfg := config.DefaultCompliance()
	require.NoError(t, cfg.Validate())
	return New(cfg)
}

func TestDocumentTypeFromFilename(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		filename string
		want     string
	}{
		{"articles_of_association_v2.docx", "Articles of Association"},
		{"UBO_declaration.txt", "UBO Declaration Form"},
		{"Employment Contract - Jane.txt", "Employment Contract"},
		{"passport_scan.pdf", "Passport Copy"},
		{"random_notes.txt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			doc := &domain.Document{Filename: tt.filename}
			assert.Equal(t, tt.want, c.DocumentType(doc))
		})
	}
}

func TestDocumentTypeDeclaredTypeWins(t *testing.T) {
	c := newClassifier(t)
	doc := &domain.Document{
		Filename:     "articles_of_association.txt",
		DeclaredType: "Business Plan",
	}
	assert.Equal(t, "Business Plan", c.DocumentType(doc))
}

func TestDocumentTypeFromHeadings(t *testing.T) {
	c := newClassifier(t)
	doc := &domain.Document{
		Filename: "upload-17.txt",
		Sections: []domain.Section{
			{Heading: "MEMORANDUM OF ASSOCIATION", Text: "of Example Ltd", Ordinal: 0},
		},
	}
	assert.Equal(t, "Memorandum of Association", c.DocumentType(doc))
}

func TestDocumentTypeFromFirstBodyLine(t *testing.T) {
	c := newClassifier(t)
	doc := &domain.Document{
		Filename: "upload-18.txt",
		Sections: []domain.Section{
			{Text: "Register of Members and Directors\nMaintained pursuant to regulation.", Ordinal: 0},
		},
	}
	assert.Equal(t, "Register of Members and Directors", c.DocumentType(doc))
}

func TestClassifyIncorporation(t *testing.T) {
	c := newClassifier(t)

	got := c.Classify([]string{
		"Articles of Association",
		"Memorandum of Association",
		"UBO Declaration Form",
	})

	assert.Equal(t, domain.Process("company_incorporation"), got.Process)
	assert.Equal(t, "Company Incorporation", got.Title)
	assert.InDelta(t, 0.6, got.Overlap, 1e-9)
	assert.Len(t, got.Checklist, 5)
}

func TestClassifyEmployment(t *testing.T) {
	c := newClassifier(t)

	got := c.Classify([]string{"Employment Contract", "Passport Copy"})

	assert.Equal(t, domain.Process("employment_visa"), got.Process)
	assert.InDelta(t, 0.4, got.Overlap, 1e-9)
}

func TestClassifyBelowMinOverlapUnclassified(t *testing.T) {
	c := newClassifier(t)

	// One of five checklist items is 0.2 overlap, under the 0.3 floor.
	got := c.Classify([]string{"Business Plan"})

	assert.Equal(t, domain.ProcessUnclassified, got.Process)
	assert.Empty(t, got.Checklist)
	assert.Zero(t, got.Overlap)
}

func TestClassifyNoRecognizedTypes(t *testing.T) {
	c := newClassifier(t)

	got := c.Classify([]string{"", ""})

	assert.Equal(t, domain.ProcessUnclassified, got.Process)
}

func TestClassifyTieBreakPrefersLongerChecklist(t *testing.T) {
	cfg := config.DefaultCompliance()
	cfg.Classifier.MinOverlap = 0.1
	cfg.Processes = []config.ProcessConfig{
		{Name: "short", Title: "Short", Checklist: []string{"A", "B"}},
		{Name: "long", Title: "Long", Checklist: []string{"C", "D", "E", "F"}},
	}
	require.NoError(t, cfg.Validate())
	c := New(cfg)

	// One hit each: 0.5 vs 0.25, short wins outright.
	got := c.Classify([]string{"A", "C"})
	assert.Equal(t, domain.Process("short"), got.Process)

	// Equal ratios: two hits on short (1.0) vs four on long (1.0); the
	// longer checklist wins the tie.
	got = c.Classify([]string{"A", "B", "C", "D", "E", "F"})
	assert.Equal(t, domain.Process("long"), got.Process)
}

func TestClassifyDeterministic(t *testing.T) {
	c := newClassifier(t)
	types := []string{"Articles of Association", "Business Plan", "Employment Contract"}

	first := c.Classify(types)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(types))
	}
}
