// Package classify infers document types and the regulatory process a batch
// of documents belongs to.
package classify

import (
	"sort"
	"strings"

	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/domain"
)

// Classifier matches documents against a label dictionary and processes
// against their required checklists.
type Classifier struct {
	minOverlap float64
	types      []config.DocumentTypePattern
	processes  []domain.ProcessDefinition
}

// New builds a Classifier from compliance configuration.
func New(cfg *config.Compliance) *Classifier {
	return &Classifier{
		minOverlap: cfg.Classifier.MinOverlap,
		types:      cfg.DocumentTypes,
		processes:  cfg.ProcessDefinitions(),
	}
}

// Classification is the outcome of classifying a batch.
type Classification struct {
	Process   domain.Process
	Title     string
	Checklist []string
	// Overlap is the winning checklist overlap ratio, 0 when unclassified.
	Overlap float64
}

// DocumentType infers a document's type label from its declared type, its
// filename and its section headings, in that order of preference. Unmatched
// documents keep an empty type and only participate in document-level rules.
func (c *Classifier) DocumentType(doc *domain.Document) string {
	if doc.DeclaredType != "" {
		return doc.DeclaredType
	}
	if label, ok := c.matchLabel(doc.Filename); ok {
		return label
	}
	for _, s := range doc.Sections {
		if label, ok := c.matchLabel(s.Heading); ok {
			return label
		}
	}
	// A title-like first line often names the document even when the
	// extractor did not treat it as a heading.
	if len(doc.Sections) > 0 {
		firstLine, _, _ := strings.Cut(doc.Sections[0].Text, "\n")
		if label, ok := c.matchLabel(firstLine); ok {
			return label
		}
	}
	return ""
}

func (c *Classifier) matchLabel(text string) (string, bool) {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return "", false
	}
	for _, dt := range c.types {
		for _, p := range dt.Patterns {
			if strings.Contains(lowered, p) {
				return dt.Label, true
			}
		}
	}
	return "", false
}

// Classify picks the process whose checklist best overlaps the uploaded
// document types. Overlap is |uploaded ∩ checklist| / |checklist|. Ties go to
// the process with the longer checklist; a best overlap below the configured
// minimum yields the unclassified process with an empty checklist.
func (c *Classifier) Classify(uploadedTypes []string) Classification {
	uploaded := make(map[string]struct{}, len(uploadedTypes))
	for _, t := range uploadedTypes {
		if t != "" {
			uploaded[t] = struct{}{}
		}
	}

	unclassified := Classification{Process: domain.ProcessUnclassified}
	if len(uploaded) == 0 || len(c.processes) == 0 {
		return unclassified
	}

	type candidate struct {
		def     domain.ProcessDefinition
		overlap float64
	}
	candidates := make([]candidate, 0, len(c.processes))
	for _, def := range c.processes {
		hits := 0
		for _, required := range def.Checklist {
			if _, ok := uploaded[required]; ok {
				hits++
			}
		}
		candidates = append(candidates, candidate{
			def:     def,
			overlap: float64(hits) / float64(len(def.Checklist)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		return len(candidates[i].def.Checklist) > len(candidates[j].def.Checklist)
	})

	best := candidates[0]
	if best.overlap < c.minOverlap || best.overlap == 0 {
		return unclassified
	}
	return Classification{
		Process:   best.def.Name,
		Title:     best.def.Title,
		Checklist: append([]string(nil), best.def.Checklist...),
		Overlap:   best.overlap,
	}
}
