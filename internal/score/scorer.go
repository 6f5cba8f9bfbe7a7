// Package score turns a batch's checklist and rule outcomes into a single
// confidence score in [0,1].
package score

import (
	"math"

	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/domain"
)

// Input carries the aggregates the score is computed from.
type Input struct {
	RequiredCount     int
	MissingCount      int
	DocumentsAnalyzed int

	Issues []domain.Issue

	// RulesApplicable counts every (document, rule) pairing attempted;
	// RulesEvaluated counts those that ended passed or flagged. The gap is
	// the unverified remainder, which lowers coverage.
	RulesApplicable int
	RulesEvaluated  int
}

// Scorer computes the weighted confidence score.
type Scorer struct {
	cfg config.ScoringConfig
}

// New builds a Scorer from the configured weights.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score blends checklist completeness, inverse severity load and rule
// coverage. The result is clamped to [0,1] and rounded to two decimals, and
// is non-increasing in the number of High findings all else equal.
func (s *Scorer) Score(in Input) float64 {
	completeness := 1.0
	if in.RequiredCount > 0 {
		present := in.RequiredCount - in.MissingCount
		if present < 0 {
			present = 0
		}
		completeness = float64(present) / float64(in.RequiredCount)
	}

	load := 0.0
	for _, issue := range in.Issues {
		load += s.severityWeight(issue.Severity)
	}
	capacity := s.cfg.IssueCapPerDocument * float64(in.DocumentsAnalyzed)
	if capacity <= 0 {
		capacity = s.cfg.IssueCapPerDocument
	}
	severityTerm := 1.0 - math.Min(1.0, load/capacity)

	coverage := 1.0
	if in.RulesApplicable > 0 {
		coverage = float64(in.RulesEvaluated) / float64(in.RulesApplicable)
	}

	weightSum := s.cfg.CompletenessWeight + s.cfg.SeverityWeight + s.cfg.CoverageWeight
	if weightSum <= 0 {
		return 0
	}
	raw := (s.cfg.CompletenessWeight*completeness +
		s.cfg.SeverityWeight*severityTerm +
		s.cfg.CoverageWeight*coverage) / weightSum

	clamped := math.Max(0, math.Min(1, raw))
	return math.Round(clamped*100) / 100
}

func (s *Scorer) severityWeight(sev domain.Severity) float64 {
	switch sev {
	case domain.SeverityHigh:
		return s.cfg.HighWeight
	case domain.SeverityMedium:
		return s.cfg.MediumWeight
	case domain.SeverityLow:
		return s.cfg.LowWeight
	}
	return s.cfg.LowWeight
}
