package domain

import "fmt"

// Severity classifies how serious a compliance issue is.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// severityRank orders severities High before Medium before Low for report
// sorting. Unknown severities sort last.
func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 3
}

// Issue is a single compliance finding. Issues are immutable once produced.
// SectionID is empty for document-level issues.
type Issue struct {
	DocumentID     string   `json:"document_id"`
	SectionID      string   `json:"section_id,omitempty"`
	SectionOrdinal int      `json:"section_ordinal"` // -1 for document-level issues
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Suggestion     string   `json:"suggestion"`
	Reference      string   `json:"reference"`
	RuleID         string   `json:"rule_id"`
}

// RuleOutcome tags how a single (document, rule) evaluation ended.
// Unverified means the rule could not be evaluated (for example a failed
// retrieval call after retries); it is distinct from both pass and fail.
type RuleOutcome string

const (
	RuleOutcomePassed     RuleOutcome = "passed"
	RuleOutcomeFlagged    RuleOutcome = "flagged"
	RuleOutcomeUnverified RuleOutcome = "unverified"
)

// RuleResult is the evaluation record for one rule against one document.
type RuleResult struct {
	RuleID     string      `json:"rule_id"`
	DocumentID string      `json:"document_id"`
	Outcome    RuleOutcome `json:"outcome"`
	Issues     []Issue     `json:"issues,omitempty"`
	Detail     string      `json:"detail,omitempty"` // why an outcome is unverified
}

// ValidateIssue validates an Issue instance.
func ValidateIssue(i *Issue) error {
	if i == nil {
		return fmt.Errorf("issue cannot be nil")
	}
	if i.DocumentID == "" {
		return fmt.Errorf("issue DocumentID is required")
	}
	if i.RuleID == "" {
		return fmt.Errorf("issue RuleID is required")
	}
	if i.Message == "" {
		return fmt.Errorf("issue Message is required")
	}
	if !isValidSeverity(i.Severity) {
		return fmt.Errorf("issue Severity is invalid: %s", i.Severity)
	}
	return nil
}

// isValidSeverity checks if a Severity is one of the three fixed labels.
func isValidSeverity(s Severity) bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}
