// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/gaps"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAnalysis outputs a human-readable summary of one fit analysis.
func (p *Printer) PrintAnalysis(report *capability.AnalysisReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Fit score: %d/100\n", report.FitScore))

	if len(report.Strengths) > 0 {
		sb.WriteString("\nStrengths:\n")
		count := min(len(report.Strengths), maxItemsToShow)
		for i := 0; i < count; i++ {
			strength := report.Strengths[i]
			if len(strength) > 50 {
				strength = strength[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", strength))
		}
		if len(report.Strengths) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Strengths)-maxItemsToShow))
		}
	}

	if len(report.Gaps) > 0 {
		sb.WriteString("\nGaps:\n")
		count := min(len(report.Gaps), maxItemsToShow)
		for i := 0; i < count; i++ {
			g := report.Gaps[i]
			sb.WriteString(fmt.Sprintf("  • %s", g.Requirement))
			if g.Category != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", g.Category))
			}
			sb.WriteString("\n")
		}
		if len(report.Gaps) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Gaps)-maxItemsToShow))
		}
	}

	p.printBox("FIT ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGapLedger outputs the current resolved/open split of a ledger.
func (p *Printer) PrintGapLedger(ledger *gaps.Ledger) {
	if ledger == nil || ledger.Len() == 0 {
		return
	}

	var sb strings.Builder
	open := ledger.Remaining()
	sb.WriteString(fmt.Sprintf("Tracked gaps: %d (%d open)\n\n", ledger.Len(), len(open)))

	for i, g := range ledger.Snapshot() {
		marker := "○"
		if g.Status == gaps.StatusResolved {
			marker = "✓"
		}
		requirement := g.Requirement
		if len(requirement) > 45 {
			requirement = requirement[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s)\n", marker, requirement, g.Category))
		if g.ResolutionNote != "" {
			note := g.ResolutionNote
			if len(note) > 48 {
				note = note[:45] + "..."
			}
			sb.WriteString(fmt.Sprintf("  %s\n", note))
		}
		if i < ledger.Len()-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("GAP LEDGER", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecommendation outputs the final verdict box.
func (p *Printer) PrintRecommendation(rec *capability.Recommendation) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Verdict: %s\n", rec.Verdict))
	sb.WriteString("\n")

	rationale := rec.Rationale
	for len(rationale) > boxWidth-4 {
		sb.WriteString(rationale[:boxWidth-4] + "\n")
		rationale = rationale[boxWidth-4:]
	}
	sb.WriteString(rationale + "\n")

	if len(rec.ActionItems) > 0 {
		sb.WriteString("\nAction items:\n")
		count := min(len(rec.ActionItems), maxItemsToShow)
		for i := 0; i < count; i++ {
			item := rec.ActionItems[i]
			if len(item) > 50 {
				item = item[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", item))
		}
		if len(rec.ActionItems) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.ActionItems)-maxItemsToShow))
		}
	}

	p.printBox("RECOMMENDATION", strings.TrimSuffix(sb.String(), "\n"))
}
