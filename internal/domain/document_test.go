package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSections() []Section {
	return []Section{
		{ID: "s0", Heading: "1. Name", Text: "The name of the company is Example Ltd.", Ordinal: 0},
		{ID: "s1", Heading: "2. Jurisdiction", ClauseLabel: "Clause 2", Text: "Disputes are resolved by the ADGM Courts.", Ordinal: 1},
	}
}

func TestNewDocument(t *testing.T) {
	now := time.Now()
	doc := NewDocument("d1", "articles_of_association.txt", testSections(), now)

	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, "articles_of_association.txt", doc.Filename)
	assert.Equal(t, "", doc.DeclaredType)
	assert.Len(t, doc.Sections, 2)
	assert.Equal(t, now, doc.NormalizedAt)
}

func TestDocumentSectionByID(t *testing.T) {
	doc := NewDocument("d1", "f.txt", testSections(), time.Now())

	sec := doc.SectionByID("s1")
	require.NotNil(t, sec)
	assert.Equal(t, 1, sec.Ordinal)
	assert.Equal(t, "Clause 2", sec.ClauseLabel)

	assert.Nil(t, doc.SectionByID("missing"))
}

func TestDocumentText(t *testing.T) {
	doc := NewDocument("d1", "f.txt", testSections(), time.Now())

	text := doc.Text()
	assert.Contains(t, text, "1. Name")
	assert.Contains(t, text, "ADGM Courts")
}

func TestValidateDocument(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		doc     *Document
		wantErr string
	}{
		{
			name: "valid",
			doc:  NewDocument("d1", "f.txt", testSections(), now),
		},
		{
			name:    "nil",
			doc:     nil,
			wantErr: "cannot be nil",
		},
		{
			name:    "missing id",
			doc:     NewDocument("", "f.txt", testSections(), now),
			wantErr: "ID is required",
		},
		{
			name:    "missing filename",
			doc:     NewDocument("d1", "", testSections(), now),
			wantErr: "Filename is required",
		},
		{
			name:    "no sections",
			doc:     NewDocument("d1", "f.txt", nil, now),
			wantErr: "at least one section",
		},
		{
			name: "non-contiguous ordinals",
			doc: NewDocument("d1", "f.txt", []Section{
				{ID: "s0", Text: "a", Ordinal: 0},
				{ID: "s1", Text: "b", Ordinal: 5},
			}, now),
			wantErr: "ordinals must be contiguous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
