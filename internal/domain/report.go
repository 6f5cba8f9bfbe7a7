package domain

import (
	"sort"
	"time"
)

// FailedDocument records a document that could not be analyzed. Failed
// documents are excluded from classification, checklist and rule stages but
// always appear in the report so reviewers know what was not checked.
type FailedDocument struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UnverifiedRule records a rule that could not be evaluated for a document.
type UnverifiedRule struct {
	RuleID     string `json:"rule_id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Detail     string `json:"detail"`
}

// AnalysisReport is the structured output of one analysis run.
type AnalysisReport struct {
	Process           Process          `json:"process"`
	ProcessTitle      string           `json:"process_title"`
	DocumentsUploaded int              `json:"documents_uploaded"`
	DocumentsAnalyzed int              `json:"documents_analyzed"`
	RequiredDocuments int              `json:"required_documents"`
	MissingDocuments  []string         `json:"missing_documents"`
	ExtraDocuments    []string         `json:"extra_documents,omitempty"`
	Issues            []Issue          `json:"issues"`
	FailedDocuments   []FailedDocument `json:"failed_documents,omitempty"`
	UnverifiedRules   []UnverifiedRule `json:"unverified_rules,omitempty"`
	ConfidenceScore   float64          `json:"confidence_score"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// SortIssues orders issues by severity (High first), then by document ID,
// then by section ordinal with document-level issues (ordinal -1) first.
// The sort is stable so repeated runs produce identical output.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if ra, rb := severityRank(a.Severity), severityRank(b.Severity); ra != rb {
			return ra < rb
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.SectionOrdinal < b.SectionOrdinal
	})
}

// CountBySeverity returns the number of issues carrying the given severity.
func (r *AnalysisReport) CountBySeverity(s Severity) int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			count++
		}
	}
	return count
}
