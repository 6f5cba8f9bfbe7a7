package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the lifecycle state of a document within a batch.
type DocumentStatus string

const (
	DocumentStatusReceived   DocumentStatus = "received"
	DocumentStatusNormalized DocumentStatus = "normalized"
	DocumentStatusAnalyzed   DocumentStatus = "analyzed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Section is an addressable span of a normalized document. Ordinals are
// stable for the lifetime of the analysis run and anchor issue annotations.
type Section struct {
	ID          string
	Heading     string
	ClauseLabel string // e.g. "Clause 4", "Article 12", empty when undetectable
	Text        string
	Ordinal     int
}

// Document is a normalized uploaded document. It is immutable after
// normalization; annotations reference sections by ID, they never mutate them.
type Document struct {
	ID           string
	Filename     string
	DeclaredType string // inferred document-type label, empty when unknown
	Sections     []Section
	NormalizedAt time.Time
}

// NewDocument creates a normalized Document instance.
func NewDocument(id, filename string, sections []Section, normalizedAt time.Time) *Document {
	return &Document{
		ID:           id,
		Filename:     filename,
		Sections:     sections,
		NormalizedAt: normalizedAt,
	}
}

// SectionByID returns the section with the given ID, or nil.
func (d *Document) SectionByID(id string) *Section {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i]
		}
	}
	return nil
}

// Text returns the full document text, sections joined in ordinal order.
func (d *Document) Text() string {
	var out string
	for i, s := range d.Sections {
		if i > 0 {
			out += "\n\n"
		}
		if s.Heading != "" {
			out += s.Heading + "\n"
		}
		out += s.Text
	}
	return out
}

// ValidateDocument validates a Document instance.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}
	if len(d.Sections) == 0 {
		return fmt.Errorf("document must have at least one section")
	}
	for i, s := range d.Sections {
		if s.Ordinal != i {
			return fmt.Errorf("section %d has ordinal %d, ordinals must be contiguous", i, s.Ordinal)
		}
		if s.ID == "" {
			return fmt.Errorf("section %d is missing an ID", i)
		}
	}
	return nil
}
