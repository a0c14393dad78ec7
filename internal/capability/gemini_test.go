package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-advisor/internal/gaps"
	"github.com/jonathan/application-advisor/internal/llm"
)

// fakeLLM returns canned responses in order, so schema retry paths can be
// exercised without a live provider.
type fakeLLM struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeLLM) next() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.calls >= len(f.responses) {
		return "", errors.New("no more canned responses")
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.next()
}

func (f *fakeLLM) GenerateContentStream(_ context.Context, _ string, _ llm.ModelTier, onChunk llm.StreamFunc) (string, error) {
	resp, err := f.next()
	if err != nil {
		return "", err
	}
	if onChunk != nil {
		onChunk(resp)
	}
	return resp, nil
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.next()
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return string(tier) }
func (f *fakeLLM) Close() error                       { return nil }

func TestAnalyzeParsesReport(t *testing.T) {
	suite := NewGeminiSuite(&fakeLLM{responses: []string{
		`{"fit_score": 72, "gaps": [{"requirement": "Kubernetes", "category": "must_have", "priority": "high", "reason": "not mentioned"}], "strengths": ["Go services"]}`,
	}}, nil)

	report, err := suite.Analyze(context.Background(), "cv text", "job text")
	require.NoError(t, err)
	assert.Equal(t, 72, report.FitScore)
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, "Kubernetes", report.Gaps[0].Requirement)
	assert.Equal(t, []string{"Go services"}, report.Strengths)
}

func TestAnalyzeRejectsEmptyInputs(t *testing.T) {
	suite := NewGeminiSuite(&fakeLLM{}, nil)

	_, err := suite.Analyze(context.Background(), "  ", "job text")
	var capErr *Error
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "analyze", capErr.Port)
}

func TestAnalyzeRetriesOnceOnSchemaViolation(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		`{"fit_score": "high"}`, // wrong type, missing fields
		`{"fit_score": 40, "gaps": [], "strengths": []}`,
	}}
	suite := NewGeminiSuite(fake, nil)

	report, err := suite.Analyze(context.Background(), "cv", "job")
	require.NoError(t, err)
	assert.Equal(t, 40, report.FitScore)
	assert.Equal(t, 2, fake.calls)
}

func TestAnalyzeFailsAfterSecondSchemaViolation(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		`{"fit_score": "high"}`,
		`{"fit_score": 120, "gaps": [], "strengths": []}`, // out of range
	}}
	suite := NewGeminiSuite(fake, nil)

	_, err := suite.Analyze(context.Background(), "cv", "job")
	var capErr *Error
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "analyze", capErr.Port)
	assert.Equal(t, 2, fake.calls)
}

func TestValidateMapsNullToNoResolution(t *testing.T) {
	suite := NewGeminiSuite(&fakeLLM{responses: []string{
		`{"addressed_gap_id": null, "resolution_summary": null}`,
	}}, nil)

	open := []gaps.Gap{{ID: "kubernetes", Requirement: "Kubernetes"}}
	verdict, err := suite.Validate(context.Background(), open, Exchange{UserMessage: "hi", ReplyText: "hello"})
	require.NoError(t, err)
	assert.Empty(t, verdict.AddressedGapID)
}

func TestValidateSkipsModelWhenNoOpenGaps(t *testing.T) {
	fake := &fakeLLM{}
	suite := NewGeminiSuite(fake, nil)

	verdict, err := suite.Validate(context.Background(), nil, Exchange{UserMessage: "hi"})
	require.NoError(t, err)
	assert.Empty(t, verdict.AddressedGapID)
	assert.Zero(t, fake.calls)
}

func TestRecommendParsesVerdict(t *testing.T) {
	suite := NewGeminiSuite(&fakeLLM{responses: []string{
		`{"verdict": "cautious_apply", "rationale": "Good base, missing Kubernetes.", "action_items": ["Take a k8s course"]}`,
	}}, nil)

	rec, err := suite.Recommend(context.Background(), RecommendInput{
		FitScore:      60,
		RemainingGaps: []gaps.Gap{{ID: "kubernetes", Requirement: "Kubernetes", Category: gaps.CategoryMustHave, Priority: gaps.PriorityHigh}},
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictCautiousApply, rec.Verdict)
	assert.Len(t, rec.ActionItems, 1)
}

func TestConverseStreamsAndReturnsFullText(t *testing.T) {
	suite := NewGeminiSuite(&fakeLLM{responses: []string{"Tell me about your Go experience."}}, nil)

	var streamed string
	reply, err := suite.Converse(context.Background(), ConversationContext{}, "hi", func(chunk string) {
		streamed += chunk
	})
	require.NoError(t, err)
	assert.Equal(t, "Tell me about your Go experience.", reply.Text)
	assert.Equal(t, reply.Text, streamed)
}

func TestConversePromptSelection(t *testing.T) {
	tests := []struct {
		name    string
		convCtx ConversationContext
		wantKey string
	}{
		{"collecting", ConversationContext{Status: "missing job description"}, "converse-collecting"},
		{"opening", ConversationContext{Opening: true}, "converse-opening"},
		{"steered", ConversationContext{TargetGap: "Kubernetes"}, "converse-steer"},
		{"plain turn", ConversationContext{History: []string{"User: hi"}}, "converse-turn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, _ := conversePrompt(tt.convCtx, "message")
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestConverseWrapsProviderFailure(t *testing.T) {
	suite := NewGeminiSuite(&fakeLLM{err: errors.New("quota exceeded")}, nil)

	_, err := suite.Converse(context.Background(), ConversationContext{}, "hi", nil)
	var capErr *Error
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "converse", capErr.Port)
}
