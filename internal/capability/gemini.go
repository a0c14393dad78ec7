package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/application-advisor/internal/gaps"
	"github.com/jonathan/application-advisor/internal/llm"
	"github.com/jonathan/application-advisor/internal/prompts"
	"github.com/jonathan/application-advisor/internal/schemas"
)

const promptFile = "advisor.json"

// GeminiSuite implements all four capability ports on a shared LLM client.
// Structured ports (analyze, validate, recommend) request JSON output and
// validate it against an embedded schema, retrying once with the validation
// errors echoed back. The conversational port streams plain text.
type GeminiSuite struct {
	client llm.Client
	logger *zap.Logger
}

// NewGeminiSuite creates the capability implementations. A nil logger disables logging.
func NewGeminiSuite(client llm.Client, logger *zap.Logger) *GeminiSuite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiSuite{client: client, logger: logger}
}

// Ports returns the suite wired into the port bundle the orchestrator takes.
func (s *GeminiSuite) Ports() Suite {
	return Suite{
		Analyzer:          s,
		Conversationalist: s,
		Validator:         s,
		Recommender:       s,
	}
}

// Analyze compares the CV against one job posting.
func (s *GeminiSuite) Analyze(ctx context.Context, cvText, jobText string) (*AnalysisReport, error) {
	if strings.TrimSpace(cvText) == "" || strings.TrimSpace(jobText) == "" {
		return nil, &Error{Port: "analyze", Message: "cv text and job text are both required"}
	}

	template, err := prompts.Get(promptFile, "analyze")
	if err != nil {
		return nil, &Error{Port: "analyze", Message: "prompt unavailable", Cause: err}
	}
	prompt := prompts.Format(template, map[string]string{
		"CVText":  cvText,
		"JobText": jobText,
	})

	raw, err := s.generateValidatedJSON(ctx, "analyze", prompt, llm.TierAdvanced, analysisSchema)
	if err != nil {
		return nil, err
	}

	var report AnalysisReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, &Error{Port: "analyze", Message: "failed to parse analysis response", Cause: err}
	}

	s.logger.Info("analysis complete",
		zap.Int("fit_score", report.FitScore),
		zap.Int("gaps", len(report.Gaps)),
		zap.Int("strengths", len(report.Strengths)))
	return &report, nil
}

// Converse generates the next conversational reply. The prompt variant is
// picked from the context: collecting status, Q&A opening, steered follow-up,
// or a plain turn.
func (s *GeminiSuite) Converse(ctx context.Context, convCtx ConversationContext, userMessage string, onDelta llm.StreamFunc) (*Reply, error) {
	key, data := conversePrompt(convCtx, userMessage)

	template, err := prompts.Get(promptFile, key)
	if err != nil {
		return nil, &Error{Port: "converse", Message: "prompt unavailable", Cause: err}
	}
	prompt := prompts.Format(template, data)

	var text string
	if onDelta != nil {
		text, err = s.client.GenerateContentStream(ctx, prompt, llm.TierStandard, onDelta)
	} else {
		text, err = s.client.GenerateContent(ctx, prompt, llm.TierStandard)
	}
	if err != nil {
		return nil, &Error{Port: "converse", Message: "generation failed", Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Port: "converse", Message: "empty reply from model"}
	}
	return &Reply{Text: text}, nil
}

// conversePrompt selects the template and its bindings for one turn.
func conversePrompt(convCtx ConversationContext, userMessage string) (string, map[string]string) {
	switch {
	case convCtx.Status != "":
		return "converse-collecting", map[string]string{
			"Status":      convCtx.Status,
			"UserMessage": userMessage,
		}
	case convCtx.Opening:
		return "converse-opening", map[string]string{
			"Gaps": renderGapLines(convCtx.OpenGaps),
		}
	case convCtx.TargetGap != "":
		return "converse-steer", map[string]string{
			"History":     strings.Join(convCtx.History, "\n"),
			"UserMessage": userMessage,
			"TargetGap":   convCtx.TargetGap,
		}
	default:
		return "converse-turn", map[string]string{
			"History":     strings.Join(convCtx.History, "\n"),
			"UserMessage": userMessage,
		}
	}
}

// Validate reconciles the finished exchange against the open gap list.
func (s *GeminiSuite) Validate(ctx context.Context, openGaps []gaps.Gap, exchange Exchange) (*ValidationVerdict, error) {
	if len(openGaps) == 0 {
		return &ValidationVerdict{}, nil
	}

	template, err := prompts.Get(promptFile, "validate")
	if err != nil {
		return nil, &Error{Port: "validate", Message: "prompt unavailable", Cause: err}
	}
	prompt := prompts.Format(template, map[string]string{
		"OpenGaps": renderGapIDs(openGaps),
		"Exchange": fmt.Sprintf("User: %s\nAdvisor: %s", exchange.UserMessage, exchange.ReplyText),
	})

	raw, err := s.generateValidatedJSON(ctx, "validate", prompt, llm.TierLite, validationSchema)
	if err != nil {
		return nil, err
	}

	var wire struct {
		AddressedGapID    *string `json:"addressed_gap_id"`
		ResolutionSummary *string `json:"resolution_summary"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, &Error{Port: "validate", Message: "failed to parse validation response", Cause: err}
	}

	verdict := &ValidationVerdict{}
	if wire.AddressedGapID != nil {
		verdict.AddressedGapID = strings.TrimSpace(*wire.AddressedGapID)
	}
	if wire.ResolutionSummary != nil {
		verdict.ResolutionSummary = strings.TrimSpace(*wire.ResolutionSummary)
	}
	return verdict, nil
}

// Recommend issues the final verdict for one job analysis.
func (s *GeminiSuite) Recommend(ctx context.Context, input RecommendInput) (*Recommendation, error) {
	template, err := prompts.Get(promptFile, "recommend")
	if err != nil {
		return nil, &Error{Port: "recommend", Message: "prompt unavailable", Cause: err}
	}
	prompt := prompts.Format(template, map[string]string{
		"FitScore":      fmt.Sprintf("%d", input.FitScore),
		"RemainingGaps": renderGapLines(input.RemainingGaps),
		"Strengths":     renderList(input.Strengths),
		"QnASummary":    input.QnASummary,
	})

	raw, err := s.generateValidatedJSON(ctx, "recommend", prompt, llm.TierAdvanced, recommendationSchema)
	if err != nil {
		return nil, err
	}

	var rec Recommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, &Error{Port: "recommend", Message: "failed to parse recommendation response", Cause: err}
	}

	s.logger.Info("recommendation issued", zap.String("verdict", string(rec.Verdict)))
	return &rec, nil
}

// generateValidatedJSON calls the model in JSON mode and validates the result
// against the port's schema. On a schema violation it retries once with the
// validation errors appended to the prompt; a second violation is a capability
// failure.
func (s *GeminiSuite) generateValidatedJSON(ctx context.Context, port, prompt string, tier llm.ModelTier, schema string) (string, error) {
	raw, err := s.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return "", &Error{Port: port, Message: "generation failed", Cause: err}
	}

	valErr := schemas.ValidateJSONString(schema, raw)
	if valErr == nil {
		return raw, nil
	}

	s.logger.Warn("capability response failed schema, retrying once",
		zap.String("port", port),
		zap.Error(valErr))

	retryPrompt := fmt.Sprintf(
		"%s\n\nYour previous response was invalid:\n%v\nReturn corrected JSON only.",
		prompt, valErr)
	raw, err = s.client.GenerateJSON(ctx, retryPrompt, tier)
	if err != nil {
		return "", &Error{Port: port, Message: "retry generation failed", Cause: err}
	}
	if valErr := schemas.ValidateJSONString(schema, raw); valErr != nil {
		return "", &Error{Port: port, Message: "response failed schema validation after retry", Cause: valErr}
	}
	return raw, nil
}

func renderGapLines(list []gaps.Gap) string {
	if len(list) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, g := range list {
		fmt.Fprintf(&sb, "- %s (%s, %s priority)\n", g.Requirement, g.Category, g.Priority)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderGapIDs(list []gaps.Gap) string {
	var sb strings.Builder
	for _, g := range list {
		fmt.Fprintf(&sb, "- %s: %s\n", g.ID, g.Requirement)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return "- " + strings.Join(items, "\n- ")
}
