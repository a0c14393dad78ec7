// Package capability defines the contracts for the LLM-backed capabilities the
// workflow orchestrator sequences: analysis, conversation, gap validation, and
// recommendation. Each port is a pure request/response contract; no port
// retains state between calls. All conversational memory lives in the session.
package capability

import (
	"context"

	"github.com/jonathan/application-advisor/internal/gaps"
	"github.com/jonathan/application-advisor/internal/llm"
)

// AnalysisReport is the structured result of comparing a CV against one job posting.
type AnalysisReport struct {
	FitScore  int           `json:"fit_score"`
	Gaps      []gaps.Record `json:"gaps"`
	Strengths []string      `json:"strengths"`
}

// Analyzer compares a CV against a job description and reports fit and gaps.
type Analyzer interface {
	Analyze(ctx context.Context, cvText, jobText string) (*AnalysisReport, error)
}

// ConversationContext is the slice of session state a conversational turn needs.
// The conversationalist never sees or mutates the gap ledger itself; open gaps
// are passed read-only for question targeting.
type ConversationContext struct {
	Phase     string
	CVText    string
	JobText   string
	History   []string // rendered "User: ..." / "Advisor: ..." lines, oldest first
	OpenGaps  []gaps.Gap
	TargetGap string // non-empty when the orchestrator wants the reply steered toward one gap
	Opening   bool   // first Q&A turn: open the conversation instead of replying
	Status    string // collecting phase only: which inputs are still missing
}

// Reply is one generated conversational response.
type Reply struct {
	Text         string
	QuickReplies []string
}

// Conversationalist generates the next question or remark in the dialogue.
// When onDelta is non-nil and the provider supports it, the reply text is also
// delivered incrementally; the returned Reply always carries the full text.
type Conversationalist interface {
	Converse(ctx context.Context, convCtx ConversationContext, userMessage string, onDelta llm.StreamFunc) (*Reply, error)
}

// Exchange is one complete user/system exchange. Validation only ever runs on
// a finished exchange, never on a partially streamed reply.
type Exchange struct {
	UserMessage string
	ReplyText   string
}

// ValidationVerdict reports whether the latest exchange resolved an open gap.
// An empty AddressedGapID means no gap was resolved this turn. The verdict is
// advisory: it may name a gap the ledger already closed.
type ValidationVerdict struct {
	AddressedGapID    string
	ResolutionSummary string
}

// Validator reconciles the latest exchange against the open gap list. It is
// deliberately decoupled from dialogue generation so conversational tone and
// gap bookkeeping cannot interfere with each other.
type Validator interface {
	Validate(ctx context.Context, openGaps []gaps.Gap, exchange Exchange) (*ValidationVerdict, error)
}

// Verdict is the final apply/skip call.
type Verdict string

// Recommendation verdicts, strongest to weakest.
const (
	VerdictStrongApply   Verdict = "strong_apply"
	VerdictApply         Verdict = "apply"
	VerdictCautiousApply Verdict = "cautious_apply"
	VerdictSkip          Verdict = "skip"
)

// RecommendInput carries the true remaining-gap state into the recommendation.
// The orchestrator never pretends gaps were resolved when they were not.
type RecommendInput struct {
	FitScore      int
	RemainingGaps []gaps.Gap
	Strengths     []string
	QnASummary    string
}

// Recommendation is the final synthesis for one job analysis.
type Recommendation struct {
	Verdict     Verdict  `json:"verdict"`
	Rationale   string   `json:"rationale"`
	ActionItems []string `json:"action_items"`
}

// Recommender issues the final verdict. Called exactly once per job analysis,
// on transition into the recommendation phase.
type Recommender interface {
	Recommend(ctx context.Context, input RecommendInput) (*Recommendation, error)
}

// Suite bundles the four capability ports the orchestrator needs.
type Suite struct {
	Analyzer          Analyzer
	Conversationalist Conversationalist
	Validator         Validator
	Recommender       Recommender
}
