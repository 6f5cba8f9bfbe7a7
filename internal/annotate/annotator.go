// Package annotate renders analysis output for human reviewers: annotated
// document copies with inline review notes and a markdown report summary.
package annotate

import (
	"fmt"
	"strings"

	"github.com/regulaworks/corpagent/internal/domain"
)

// AnnotateDocument returns a copy of the document text with each
// section-level issue written as a review note directly under its anchored
// section. Issues whose anchor no longer resolves are demoted to
// document-level notices at the top, never dropped.
func AnnotateDocument(doc *domain.Document, issues []domain.Issue) string {
	bySection := make(map[string][]domain.Issue)
	var docLevel []domain.Issue
	for _, issue := range issues {
		if issue.DocumentID != doc.ID {
			continue
		}
		if issue.SectionID == "" || doc.SectionByID(issue.SectionID) == nil {
			docLevel = append(docLevel, issue)
			continue
		}
		bySection[issue.SectionID] = append(bySection[issue.SectionID], issue)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", doc.Filename)
	b.WriteString(strings.Repeat("=", len(doc.Filename)) + "\n")

	if len(docLevel) > 0 {
		b.WriteString("\nDOCUMENT-LEVEL REVIEW NOTES\n")
		for _, issue := range docLevel {
			writeNote(&b, issue)
		}
	}

	for _, s := range doc.Sections {
		b.WriteString("\n")
		if s.Heading != "" {
			b.WriteString(s.Heading + "\n")
		}
		b.WriteString(s.Text + "\n")
		for _, issue := range bySection[s.ID] {
			writeNote(&b, issue)
		}
	}
	return b.String()
}

func writeNote(b *strings.Builder, issue domain.Issue) {
	fmt.Fprintf(b, "    >> REVIEW [%s] %s\n", issue.Severity, issue.Message)
	if issue.Suggestion != "" {
		fmt.Fprintf(b, "    >> Suggestion: %s\n", issue.Suggestion)
	}
	if issue.Reference != "" {
		fmt.Fprintf(b, "    >> Reference: %s\n", issue.Reference)
	}
}

// RenderSummary renders the report as reviewer-facing markdown: process,
// document counts, missing documents, issue counts by severity, confidence
// and suggested next steps.
func RenderSummary(report *domain.AnalysisReport) string {
	var b strings.Builder

	title := report.ProcessTitle
	if title == "" {
		title = string(report.Process)
	}
	fmt.Fprintf(&b, "# Compliance Analysis: %s\n\n", title)
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintf(&b, "- Documents uploaded: %d\n", report.DocumentsUploaded)
	fmt.Fprintf(&b, "- Documents analyzed: %d\n", report.DocumentsAnalyzed)
	fmt.Fprintf(&b, "- Required documents: %d\n", report.RequiredDocuments)
	fmt.Fprintf(&b, "- Missing documents: %d\n", len(report.MissingDocuments))
	fmt.Fprintf(&b, "- Confidence score: %.2f\n\n", report.ConfidenceScore)

	if len(report.MissingDocuments) > 0 {
		b.WriteString("## Missing documents\n\n")
		for _, m := range report.MissingDocuments {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	if len(report.ExtraDocuments) > 0 {
		b.WriteString("## Documents outside the checklist\n\n")
		for _, e := range report.ExtraDocuments {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Issues\n\n")
	high := report.CountBySeverity(domain.SeverityHigh)
	medium := report.CountBySeverity(domain.SeverityMedium)
	low := report.CountBySeverity(domain.SeverityLow)
	fmt.Fprintf(&b, "High: %d, Medium: %d, Low: %d\n\n", high, medium, low)
	for _, issue := range report.Issues {
		fmt.Fprintf(&b, "- **[%s]** %s", issue.Severity, issue.Message)
		if issue.Reference != "" {
			fmt.Fprintf(&b, " (%s)", issue.Reference)
		}
		b.WriteString("\n")
		if issue.Suggestion != "" {
			fmt.Fprintf(&b, "  - Suggestion: %s\n", issue.Suggestion)
		}
	}
	if len(report.Issues) == 0 {
		b.WriteString("No issues found.\n")
	}
	b.WriteString("\n")

	if len(report.FailedDocuments) > 0 {
		b.WriteString("## Documents that could not be analyzed\n\n")
		for _, f := range report.FailedDocuments {
			fmt.Fprintf(&b, "- %s: %s\n", f.Filename, f.Reason)
		}
		b.WriteString("\n")
	}

	if len(report.UnverifiedRules) > 0 {
		b.WriteString("## Unverified checks\n\n")
		for _, u := range report.UnverifiedRules {
			fmt.Fprintf(&b, "- %s on %s: %s\n", u.RuleID, u.Filename, u.Detail)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Next steps\n\n")
	for _, step := range nextSteps(report) {
		fmt.Fprintf(&b, "1. %s\n", step)
	}
	return b.String()
}

func nextSteps(report *domain.AnalysisReport) []string {
	var steps []string
	if len(report.MissingDocuments) > 0 {
		steps = append(steps, fmt.Sprintf("Prepare and upload the %d missing document(s) listed above.", len(report.MissingDocuments)))
	}
	if n := report.CountBySeverity(domain.SeverityHigh); n > 0 {
		steps = append(steps, fmt.Sprintf("Resolve the %d high-severity issue(s) before filing.", n))
	}
	if n := report.CountBySeverity(domain.SeverityMedium) + report.CountBySeverity(domain.SeverityLow); n > 0 {
		steps = append(steps, "Review the remaining findings and apply the suggested wording.")
	}
	if len(report.FailedDocuments) > 0 {
		steps = append(steps, "Re-export the unreadable document(s) and run the analysis again.")
	}
	if len(report.UnverifiedRules) > 0 {
		steps = append(steps, "Re-run once the knowledge index is available to clear unverified checks.")
	}
	if len(steps) == 0 {
		steps = append(steps, "No action required. The batch appears ready for submission.")
	}
	return steps
}
