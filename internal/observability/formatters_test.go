package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/gaps"
)

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis(&capability.AnalysisReport{
		FitScore:  72,
		Gaps:      []gaps.Record{{Requirement: "Kubernetes", Category: gaps.CategoryMustHave}},
		Strengths: []string{"Go microservices"},
	})

	out := buf.String()
	assert.Contains(t, out, "FIT ANALYSIS")
	assert.Contains(t, out, "Fit score: 72/100")
	assert.Contains(t, out, "Kubernetes")
	assert.Contains(t, out, "Go microservices")
}

func TestPrintAnalysisNilIsSilent(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintAnalysis(nil)
	assert.Empty(t, buf.String())
}

func TestPrintGapLedger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	ledger := gaps.NewLedger()
	require.NoError(t, ledger.Seed([]gaps.Record{
		{Requirement: "Kubernetes", Category: gaps.CategoryMustHave},
		{Requirement: "Terraform", Category: gaps.CategoryNiceToHave},
	}))
	ledger.ApplyResolution("kubernetes", "ran EKS clusters")

	p.PrintGapLedger(ledger)

	out := buf.String()
	assert.Contains(t, out, "GAP LEDGER")
	assert.Contains(t, out, "Tracked gaps: 2 (1 open)")
	assert.Contains(t, out, "✓ Kubernetes")
	assert.Contains(t, out, "○ Terraform")
	assert.Contains(t, out, "ran EKS clusters")
}

func TestPrintRecommendation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRecommendation(&capability.Recommendation{
		Verdict:     capability.VerdictApply,
		Rationale:   "Strong overlap with the stack.",
		ActionItems: []string{"Highlight the payments migration"},
	})

	out := buf.String()
	assert.Contains(t, out, "RECOMMENDATION")
	assert.Contains(t, out, "Verdict: apply")
	assert.Contains(t, out, "Highlight the payments migration")
}
