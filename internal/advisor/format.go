package advisor

import (
	"fmt"
	"strings"

	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/gaps"
	"github.com/jonathan/application-advisor/internal/session"
)

// formatStatus renders the 'status' command: where the session is and what
// is still outstanding.
func formatStatus(working *session.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Phase: %s\n", working.Phase)
	if strings.TrimSpace(working.CVText) == "" {
		sb.WriteString("CV: not provided\n")
	} else {
		sb.WriteString("CV: received\n")
	}
	fmt.Fprintf(&sb, "Jobs loaded: %d\n", len(working.Jobs))

	job, ok := working.ActiveJobAnalysis()
	if !ok || job.Report == nil {
		return strings.TrimRight(sb.String(), "\n")
	}

	fmt.Fprintf(&sb, "Active job: %s\n", firstLine(job.JobText))
	fmt.Fprintf(&sb, "Fit score: %d/100\n", job.Report.FitScore)
	fmt.Fprintf(&sb, "Open gaps: %d must-have, %d nice-to-have",
		len(job.Ledger.RemainingMustHave()), len(job.Ledger.RemainingNiceToHave()))
	return sb.String()
}

// formatAnalysisSummary renders the post-analysis overview shown before the
// Q&A opening question or the immediate recommendation.
func formatAnalysisSummary(working *session.Session, job *session.JobAnalysis) string {
	var sb strings.Builder
	if len(working.Jobs) > 1 {
		fmt.Fprintf(&sb, "Analyzed %d postings. Starting with: %s\n\n", len(working.Jobs), firstLine(job.JobText))
	}
	fmt.Fprintf(&sb, "Fit score: %d/100\n", job.Report.FitScore)

	if len(job.Report.Strengths) > 0 {
		sb.WriteString("\nWhere you match well:\n")
		for _, strength := range job.Report.Strengths {
			fmt.Fprintf(&sb, "  + %s\n", strength)
		}
	}

	mustHave := job.Ledger.RemainingMustHave()
	niceToHave := job.Ledger.RemainingNiceToHave()
	if len(mustHave)+len(niceToHave) == 0 {
		sb.WriteString("\nNo gaps found against this posting.")
		return sb.String()
	}

	sb.WriteString("\nAreas worth exploring:\n")
	for _, g := range mustHave {
		fmt.Fprintf(&sb, "  - %s (must-have, %s priority)\n", g.Requirement, g.Priority)
	}
	for _, g := range niceToHave {
		fmt.Fprintf(&sb, "  - %s (nice-to-have)\n", g.Requirement)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatRecommendation renders the final verdict plus the navigation menu.
func formatRecommendation(working *session.Session, job *session.JobAnalysis) string {
	rec := job.Recommendation
	var sb strings.Builder
	fmt.Fprintf(&sb, "Recommendation for %s: %s\n\n", firstLine(job.JobText), verdictLabel(rec.Verdict))
	sb.WriteString(rec.Rationale)
	sb.WriteString("\n\nExplore further:\n  1) full rationale\n  2) action items\n  3) gap review")
	if len(working.Jobs) > 1 {
		sb.WriteString("\n  4) switch job")
	}
	sb.WriteString("\nOr send 'done' to finish.")
	return sb.String()
}

func verdictLabel(v capability.Verdict) string {
	switch v {
	case capability.VerdictStrongApply:
		return "Strong apply"
	case capability.VerdictApply:
		return "Apply"
	case capability.VerdictCautiousApply:
		return "Apply with caution"
	case capability.VerdictSkip:
		return "Skip this one"
	default:
		return string(v)
	}
}

// formatActionItems renders the recommendation's concrete next steps.
func formatActionItems(rec *capability.Recommendation) string {
	if len(rec.ActionItems) == 0 {
		return "No specific action items for this one."
	}
	var sb strings.Builder
	sb.WriteString("Suggested next steps:\n")
	for i, item := range rec.ActionItems {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, item)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatGapReview renders what was resolved during Q&A and what remains open.
func formatGapReview(job *session.JobAnalysis) string {
	var sb strings.Builder

	var resolvedLines, openLines []string
	for _, g := range job.Ledger.Snapshot() {
		switch g.Status {
		case gaps.StatusResolved:
			line := fmt.Sprintf("  + %s", g.Requirement)
			if g.ResolutionNote != "" {
				line += ": " + g.ResolutionNote
			}
			resolvedLines = append(resolvedLines, line)
		default:
			openLines = append(openLines, fmt.Sprintf("  - %s (%s)", g.Requirement, g.Category))
		}
	}

	if len(resolvedLines) > 0 {
		sb.WriteString("Resolved during our conversation:\n")
		sb.WriteString(strings.Join(resolvedLines, "\n"))
		sb.WriteString("\n")
	}
	if len(openLines) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Still open:\n")
		sb.WriteString(strings.Join(openLines, "\n"))
	}
	if sb.Len() == 0 {
		return "No gaps were tracked for this posting."
	}
	return strings.TrimRight(sb.String(), "\n")
}
