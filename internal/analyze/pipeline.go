// Package analyze orchestrates the batch pipeline: normalize, classify,
// verify the checklist, run rules, score and annotate.
package analyze

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/regulaworks/corpagent/internal/annotate"
	"github.com/regulaworks/corpagent/internal/checklist"
	"github.com/regulaworks/corpagent/internal/classify"
	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/domain"
	"github.com/regulaworks/corpagent/internal/extract"
	"github.com/regulaworks/corpagent/internal/normalize"
	"github.com/regulaworks/corpagent/internal/rules"
	"github.com/regulaworks/corpagent/internal/score"
	"github.com/regulaworks/corpagent/internal/telemetry"
)

// BatchState names the pipeline stages a batch moves through.
type BatchState string

const (
	StateReceived          BatchState = "received"
	StateNormalized        BatchState = "normalized"
	StateClassified        BatchState = "classified"
	StateChecklistVerified BatchState = "checklist_verified"
	StateRuleChecked       BatchState = "rule_checked"
	StateScored            BatchState = "scored"
	StateAnnotated         BatchState = "annotated"
	StateReported          BatchState = "reported"
)

// InputDocument is one uploaded file. DeclaredType, when set, overrides type
// inference.
type InputDocument struct {
	Filename     string
	Content      []byte
	DeclaredType string
}

// DocumentResult pairs a normalized document with its per-document outcomes.
type DocumentResult struct {
	Document    *domain.Document
	Type        string
	RuleResults []domain.RuleResult
	Annotated   string
}

// Result is the full outcome of one batch run.
type Result struct {
	BatchID   string
	Report    *domain.AnalysisReport
	Documents []DocumentResult
}

// Pipeline wires the analysis stages together. One Pipeline is safe for
// concurrent batches; all state is per-run.
type Pipeline struct {
	normalizer     *normalize.Normalizer
	classifier     *classify.Classifier
	engine         *rules.Engine
	scorer         *score.Scorer
	maxConcurrency int
}

// New builds a Pipeline from compliance configuration and a rule engine.
func New(cfg *config.Compliance, engine *rules.Engine) *Pipeline {
	workers := cfg.External.MaxConcurrency
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		normalizer:     normalize.New(extract.NewTextExtractor()),
		classifier:     classify.New(cfg),
		engine:         engine,
		scorer:         score.New(cfg.Scoring),
		maxConcurrency: workers,
	}
}

// Run executes the batch pipeline. Unreadable documents are marked failed
// and reported, never fatal; only a batch where nothing normalizes aborts
// with an EMPTY_BATCH error. A cancelled context returns the context error
// and no partial report.
func (p *Pipeline) Run(ctx context.Context, inputs []InputDocument) (*Result, error) {
	batchID := uuid.New().String()
	log.Printf("batch %s: %s, %d document(s)", batchID, StateReceived, len(inputs))

	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Run", telemetry.SpanAttributes{
		BatchID:   batchID,
		Documents: len(inputs),
		Operation: "analyze",
	})
	defer span.End()

	normalized, failed, err := p.normalizeAll(ctx, inputs)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	log.Printf("batch %s: %s, %d of %d readable", batchID, StateNormalized, len(normalized), len(inputs))

	docs := make([]DocumentResult, len(normalized))
	types := make([]string, len(normalized))
	for i, doc := range normalized {
		t := p.classifier.DocumentType(doc)
		docs[i] = DocumentResult{Document: doc, Type: t}
		types[i] = t
	}
	classification := p.classifier.Classify(types)
	log.Printf("batch %s: %s as %s", batchID, StateClassified, classification.Process)

	verified := checklist.Verify(types, classification.Checklist)
	log.Printf("batch %s: %s, %d missing", batchID, StateChecklistVerified, len(verified.Missing))

	if err := p.runRules(ctx, docs); err != nil {
		span.SetError(err)
		return nil, err
	}
	log.Printf("batch %s: %s", batchID, StateRuleChecked)

	var issues []domain.Issue
	var unverified []domain.UnverifiedRule
	applicable, evaluated := 0, 0
	for i := range docs {
		for _, rr := range docs[i].RuleResults {
			applicable++
			switch rr.Outcome {
			case domain.RuleOutcomeUnverified:
				unverified = append(unverified, domain.UnverifiedRule{
					RuleID:     rr.RuleID,
					DocumentID: rr.DocumentID,
					Filename:   docs[i].Document.Filename,
					Detail:     rr.Detail,
				})
			default:
				evaluated++
				issues = append(issues, rr.Issues...)
			}
		}
	}
	domain.SortIssues(issues)

	confidence := p.scorer.Score(score.Input{
		RequiredCount:     len(classification.Checklist),
		MissingCount:      len(verified.Missing),
		DocumentsAnalyzed: len(normalized),
		Issues:            issues,
		RulesApplicable:   applicable,
		RulesEvaluated:    evaluated,
	})
	log.Printf("batch %s: %s at %.2f", batchID, StateScored, confidence)

	for i := range docs {
		docs[i].Annotated = annotate.AnnotateDocument(docs[i].Document, issues)
	}
	log.Printf("batch %s: %s", batchID, StateAnnotated)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &domain.AnalysisReport{
		Process:           classification.Process,
		ProcessTitle:      classification.Title,
		DocumentsUploaded: len(inputs),
		DocumentsAnalyzed: len(normalized),
		RequiredDocuments: len(classification.Checklist),
		MissingDocuments:  verified.Missing,
		ExtraDocuments:    verified.Extra,
		Issues:            issues,
		FailedDocuments:   failed,
		UnverifiedRules:   unverified,
		ConfidenceScore:   confidence,
		GeneratedAt:       time.Now().UTC(),
	}
	log.Printf("batch %s: %s", batchID, StateReported)

	return &Result{BatchID: batchID, Report: report, Documents: docs}, nil
}

// normalizeAll runs normalization in parallel, preserving input order in the
// returned slice. Unreadable documents become FailedDocument entries; any
// other error aborts the batch.
func (p *Pipeline) normalizeAll(ctx context.Context, inputs []InputDocument) ([]*domain.Document, []domain.FailedDocument, error) {
	type slot struct {
		doc    *domain.Document
		failed *domain.FailedDocument
	}
	slots := make([]slot, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := p.normalizer.Normalize(in.Filename, in.Content)
			if err != nil {
				log.Printf("document %s: failed: %v", in.Filename, err)
				slots[i] = slot{failed: &domain.FailedDocument{
					Filename: in.Filename,
					Reason:   failureReason(err),
				}}
				return nil
			}
			doc.DeclaredType = in.DeclaredType
			slots[i] = slot{doc: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var normalized []*domain.Document
	var failed []domain.FailedDocument
	for _, s := range slots {
		switch {
		case s.doc != nil:
			normalized = append(normalized, s.doc)
		case s.failed != nil:
			failed = append(failed, *s.failed)
		}
	}
	return normalized, failed, nil
}

// runRules evaluates all rules per document in parallel. Rule isolation
// lives in the engine; the only error out of here is cancellation.
func (p *Pipeline) runRules(ctx context.Context, docs []DocumentResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i].RuleResults = p.engine.Evaluate(gctx, docs[i].Document, docs[i].Type)
			return nil
		})
	}
	return g.Wait()
}

func failureReason(err error) string {
	var derr *domain.DomainError
	if errors.As(err, &derr) {
		return derr.Message
	}
	return err.Error()
}
