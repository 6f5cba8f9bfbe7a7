package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortIssues(t *testing.T) {
	issues := []Issue{
		{DocumentID: "b", SectionOrdinal: 2, Severity: SeverityLow, RuleID: "r1", Message: "m"},
		{DocumentID: "b", SectionOrdinal: 0, Severity: SeverityHigh, RuleID: "r2", Message: "m"},
		{DocumentID: "a", SectionOrdinal: -1, Severity: SeverityHigh, RuleID: "r3", Message: "m"},
		{DocumentID: "a", SectionOrdinal: 3, Severity: SeverityMedium, RuleID: "r4", Message: "m"},
		{DocumentID: "a", SectionOrdinal: 1, Severity: SeverityHigh, RuleID: "r5", Message: "m"},
	}

	SortIssues(issues)

	// High before Medium before Low; within severity by document, then ordinal.
	got := make([]string, 0, len(issues))
	for _, i := range issues {
		got = append(got, i.RuleID)
	}
	assert.Equal(t, []string{"r3", "r5", "r2", "r4", "r1"}, got)
}

func TestSortIssuesDeterministic(t *testing.T) {
	base := []Issue{
		{DocumentID: "a", SectionOrdinal: 0, Severity: SeverityHigh, RuleID: "r1", Message: "first"},
		{DocumentID: "a", SectionOrdinal: 0, Severity: SeverityHigh, RuleID: "r2", Message: "second"},
	}

	a := append([]Issue(nil), base...)
	b := append([]Issue(nil), base...)
	SortIssues(a)
	SortIssues(b)

	// Stable sort keeps equal keys in insertion order on every run.
	assert.Equal(t, a, b)
	assert.Equal(t, "r1", a[0].RuleID)
}

func TestCountBySeverity(t *testing.T) {
	report := &AnalysisReport{
		Issues: []Issue{
			{Severity: SeverityHigh},
			{Severity: SeverityHigh},
			{Severity: SeverityMedium},
			{Severity: SeverityLow},
		},
	}

	assert.Equal(t, 2, report.CountBySeverity(SeverityHigh))
	assert.Equal(t, 1, report.CountBySeverity(SeverityMedium))
	assert.Equal(t, 1, report.CountBySeverity(SeverityLow))
}
