// Package rules evaluates data-driven compliance rules against normalized
// documents. Structural rules are regexp predicates over located clause
// text; retrieval rules compare a clause against known-compliant language in
// the knowledge index.
package rules

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/domain"
)

// Retriever answers nearest-passage queries for retrieval rules.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
}

// SuggestionWriter optionally rewrites a flagged issue's suggestion into
// clause-specific language. Failures fall back to the templated suggestion.
type SuggestionWriter interface {
	GenerateCompletion(ctx context.Context, system, prompt string) (string, error)
}

// rule is one compiled rule record. Regexps are compiled once at engine
// construction so a bad pattern fails fast instead of per document.
type rule struct {
	id            string
	kind          string
	appliesTo     map[string]struct{}
	sectionRe     *regexp.Regexp
	patternRe     *regexp.Regexp
	minSimilarity float64
	severity      domain.Severity
	message       string
	suggestion    string
	reference     string
}

// Engine evaluates all configured rules against one document at a time.
type Engine struct {
	rules     []rule
	retriever Retriever
	writer    SuggestionWriter
	topK      int
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithSuggestionWriter wires a completion backend for suggestion rewriting.
func WithSuggestionWriter(w SuggestionWriter) Option {
	return func(e *Engine) { e.writer = w }
}

// NewEngine compiles the configured rule records. The retriever may be nil
// when the configuration contains no retrieval rules; retrieval rules
// evaluated without one come back unverified.
func NewEngine(cfg *config.Compliance, retriever Retriever, opts ...Option) (*Engine, error) {
	e := &Engine{
		retriever: retriever,
		topK:      cfg.Retrieval.TopK,
	}

	for _, rc := range cfg.Rules {
		r := rule{
			id:            rc.ID,
			kind:          rc.Kind,
			minSimilarity: rc.MinSimilarity,
			severity:      domain.Severity(rc.Severity),
			message:       rc.Message,
			suggestion:    rc.Suggestion,
			reference:     rc.Reference,
		}
		if len(rc.AppliesTo) > 0 {
			r.appliesTo = make(map[string]struct{}, len(rc.AppliesTo))
			for _, label := range rc.AppliesTo {
				r.appliesTo[label] = struct{}{}
			}
		}
		if rc.SectionPattern != "" {
			re, err := regexp.Compile(rc.SectionPattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q: compile section pattern: %w", rc.ID, err)
			}
			r.sectionRe = re
		}
		if rc.Pattern != "" {
			re, err := regexp.Compile(rc.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q: compile pattern: %w", rc.ID, err)
			}
			r.patternRe = re
		}
		e.rules = append(e.rules, r)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate runs every applicable rule against the document and returns one
// RuleResult per evaluated rule, in configuration order. Rules are isolated:
// a rule that cannot be evaluated reports unverified and never disturbs the
// other rules.
func (e *Engine) Evaluate(ctx context.Context, doc *domain.Document, docType string) []domain.RuleResult {
	results := make([]domain.RuleResult, 0, len(e.rules))
	for _, r := range e.rules {
		if !r.applies(docType) {
			continue
		}
		results = append(results, e.evaluateRule(ctx, r, doc))
	}
	return results
}

func (r rule) applies(docType string) bool {
	if r.appliesTo == nil {
		return true
	}
	_, ok := r.appliesTo[docType]
	return ok
}

func (e *Engine) evaluateRule(ctx context.Context, r rule, doc *domain.Document) domain.RuleResult {
	result := domain.RuleResult{RuleID: r.id, DocumentID: doc.ID}

	switch r.kind {
	case config.RuleKindStructural:
		e.evaluateStructural(ctx, r, doc, &result)
	case config.RuleKindRetrieval:
		e.evaluateRetrieval(ctx, r, doc, &result)
	default:
		result.Outcome = domain.RuleOutcomeUnverified
		result.Detail = fmt.Sprintf("unknown rule kind %q", r.kind)
	}
	return result
}

// locate returns the section the rule is about, or nil when the rule should
// be checked against the whole document.
func (r rule) locate(doc *domain.Document) *domain.Section {
	if r.sectionRe == nil {
		return nil
	}
	for i := range doc.Sections {
		s := &doc.Sections[i]
		if r.sectionRe.MatchString(s.Heading) || r.sectionRe.MatchString(s.Text) {
			return s
		}
	}
	return nil
}

func (e *Engine) evaluateStructural(ctx context.Context, r rule, doc *domain.Document, result *domain.RuleResult) {
	section := r.locate(doc)

	text := doc.Text()
	if section != nil {
		text = section.Heading + "\n" + section.Text
	}

	if r.patternRe.MatchString(text) {
		result.Outcome = domain.RuleOutcomePassed
		return
	}
	// A located section without the required language anchors the issue to
	// that section; everything else is a document-level finding.
	result.Outcome = domain.RuleOutcomeFlagged
	result.Issues = append(result.Issues, e.newIssue(ctx, r, doc, section, r.reference, text))
}

func (e *Engine) evaluateRetrieval(ctx context.Context, r rule, doc *domain.Document, result *domain.RuleResult) {
	if e.retriever == nil {
		result.Outcome = domain.RuleOutcomeUnverified
		result.Detail = "no retriever configured"
		return
	}

	section := r.locate(doc)
	query := doc.Text()
	if section != nil {
		query = section.Text
	}
	if strings.TrimSpace(query) == "" {
		result.Outcome = domain.RuleOutcomeUnverified
		result.Detail = "no clause text to compare"
		return
	}

	retrieved, err := e.retriever.Retrieve(ctx, query, e.topK)
	if err != nil {
		result.Outcome = domain.RuleOutcomeUnverified
		result.Detail = fmt.Sprintf("retrieval failed: %v", err)
		return
	}
	if len(retrieved.Matches) == 0 {
		result.Outcome = domain.RuleOutcomeUnverified
		result.Detail = "knowledge index returned no matches"
		return
	}

	top := retrieved.Matches[0]
	if float64(top.Score) >= r.minSimilarity {
		result.Outcome = domain.RuleOutcomePassed
		return
	}

	// The citation plus the top match make the finding auditable.
	reference := fmt.Sprintf("%s (closest match %s/%s scored %.2f, below %.2f: %q)",
		r.reference, top.SourceID, top.ChunkID, top.Score, r.minSimilarity, top.Excerpt)
	result.Outcome = domain.RuleOutcomeFlagged
	result.Issues = append(result.Issues, e.newIssue(ctx, r, doc, section, reference, query))
}

const suggestionSystemPrompt = "You are a compliance reviewer for Abu Dhabi Global Market filings. " +
	"Rewrite the provided template suggestion into one concrete sentence for the clause at hand. " +
	"Reply with the sentence only."

func (e *Engine) newIssue(ctx context.Context, r rule, doc *domain.Document, section *domain.Section, reference, clauseText string) domain.Issue {
	issue := domain.Issue{
		DocumentID:     doc.ID,
		SectionOrdinal: -1,
		Severity:       r.severity,
		Message:        r.message,
		Suggestion:     r.suggestion,
		Reference:      reference,
		RuleID:         r.id,
	}
	if section != nil {
		issue.SectionID = section.ID
		issue.SectionOrdinal = section.Ordinal
	}

	if e.writer != nil {
		prompt := fmt.Sprintf("Finding: %s\nTemplate suggestion: %s\nClause:\n%s",
			r.message, r.suggestion, truncate(clauseText, 1200))
		rewritten, err := e.writer.GenerateCompletion(ctx, suggestionSystemPrompt, prompt)
		if err != nil {
			log.Printf("rule %s: suggestion rewrite unavailable, using template: %v", r.id, err)
		} else if rewritten != "" {
			issue.Suggestion = rewritten
		}
	}
	return issue
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
