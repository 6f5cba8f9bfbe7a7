// Package normalize converts extracted document blocks into addressable,
// ordered sections suitable for rule checks and annotation anchoring.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/regulaworks/corpagent/internal/domain"
	"github.com/regulaworks/corpagent/internal/extract"
)

var clauseLabel = regexp.MustCompile(`(?i)\b(clause|article|section|part|schedule)\s+(\d+[A-Za-z]?(?:\.\d+)*)`)
var leadingNumber = regexp.MustCompile(`^(\d+(?:\.\d+)*)[.)]?\s+`)

// Normalizer turns raw document bytes into a domain.Document via the
// extraction collaborator.
type Normalizer struct {
	extractor extract.Extractor
}

// New creates a Normalizer backed by the given extractor.
func New(extractor extract.Extractor) *Normalizer {
	return &Normalizer{extractor: extractor}
}

// Normalize extracts and sections a single document. A failure here is
// per-document: callers mark the document failed and continue the batch.
func (n *Normalizer) Normalize(filename string, data []byte) (*domain.Document, error) {
	blocks, err := n.extractor.Extract(filename, data)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", filename, err)
	}

	docID := uuid.NewString()
	sections := make([]domain.Section, 0, len(blocks))
	for i, b := range blocks {
		text := strings.TrimSpace(b.Text)
		heading := strings.TrimSpace(b.Heading)
		if text == "" && heading == "" {
			continue
		}
		sections = append(sections, domain.Section{
			ID:          fmt.Sprintf("%s-s%d", docID, i),
			Heading:     heading,
			ClauseLabel: extractClauseLabel(heading, text),
			Text:        text,
			Ordinal:     len(sections),
		})
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("normalize %s: %w", filename,
			domain.NewDomainError(domain.ErrCodeUnreadableDocument, "document is empty or unreadable"))
	}

	doc := domain.NewDocument(docID, filename, sections, time.Now().UTC())
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("normalize %s: %w", filename, err)
	}
	return doc, nil
}

// extractClauseLabel derives a stable clause/article label from the heading,
// falling back to the first line of the body. Returns "" when undetectable.
func extractClauseLabel(heading, text string) string {
	if m := clauseLabel.FindStringSubmatch(heading); m != nil {
		return canonicalLabel(m[1], m[2])
	}
	if m := leadingNumber.FindStringSubmatch(heading); m != nil {
		return "Clause " + m[1]
	}
	firstLine := text
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	if m := clauseLabel.FindStringSubmatch(firstLine); m != nil {
		return canonicalLabel(m[1], m[2])
	}
	return ""
}

func canonicalLabel(kind, number string) string {
	kind = strings.ToLower(kind)
	return strings.ToUpper(kind[:1]) + kind[1:] + " " + number
}
