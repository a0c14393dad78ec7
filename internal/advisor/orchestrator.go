// Package advisor implements the workflow orchestrator: the state machine
// that sequences the analysis, conversation, validation, and recommendation
// capabilities across one advisory session. All per-turn mutations are staged
// on a clone of the session and committed to the store only after every
// capability call the turn needed has succeeded.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/gaps"
	"github.com/jonathan/application-advisor/internal/ingestion"
	"github.com/jonathan/application-advisor/internal/llm"
	"github.com/jonathan/application-advisor/internal/profile"
	"github.com/jonathan/application-advisor/internal/session"
)

// DefaultMaxQnAUserTurns bounds the Q&A phase. Once a job's Q&A has consumed
// this many user turns the orchestrator behaves as if "done" was sent.
const DefaultMaxQnAUserTurns = 25

// historyWindow is how many transcript entries conversational prompts see.
const historyWindow = 12

// TurnInput is one inbound user turn: free text, attached documents, or both.
type TurnInput struct {
	Text      string
	Documents []ingestion.Document
}

// TurnResult is what a transport renders back to the user.
type TurnResult struct {
	Reply        string
	Phase        session.Phase
	QuickReplies []string
}

// Config wires an Orchestrator. Store and Capabilities are required; the
// rest default to in-process implementations.
type Config struct {
	Store           session.Store
	Capabilities    capability.Suite
	Extractor       ingestion.Extractor
	Profiles        profile.Store
	Logger          *zap.Logger
	MaxQnAUserTurns int
}

// Orchestrator drives the session state machine. One instance serves all
// sessions; per-session turn ordering is enforced with a keyed mutex.
type Orchestrator struct {
	store     session.Store
	caps      capability.Suite
	extractor ingestion.Extractor
	profiles  profile.Store
	logger    *zap.Logger
	maxQnA    int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates an orchestrator, filling unset optional config with defaults.
func New(cfg Config) *Orchestrator {
	if cfg.Store == nil {
		cfg.Store = session.NewMemoryStore()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = &ingestion.TextExtractor{}
	}
	if cfg.Profiles == nil {
		cfg.Profiles = profile.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxQnAUserTurns <= 0 {
		cfg.MaxQnAUserTurns = DefaultMaxQnAUserTurns
	}
	return &Orchestrator{
		store:     cfg.Store,
		caps:      cfg.Capabilities,
		extractor: cfg.Extractor,
		profiles:  cfg.Profiles,
		logger:    cfg.Logger,
		maxQnA:    cfg.MaxQnAUserTurns,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SubmitTurn processes one user turn against the named session. It is the
// only entry point; transports differ only in how they render the result.
// Turns for the same session are processed strictly in arrival order. An
// unknown session ID starts a fresh session. When onDelta is non-nil,
// conversational reply text is also delivered incrementally as the provider
// streams it.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID string, input TurnInput, onDelta llm.StreamFunc) (*TurnResult, error) {
	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	stored, err := o.store.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		stored = session.New(sessionID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	// All mutations happen on the clone. The stored session is only replaced
	// once the whole turn has succeeded, so a capability failure mid-turn can
	// never leave partially applied state behind.
	working, err := stored.Clone()
	if err != nil {
		return nil, err
	}

	docTexts, err := o.extractDocuments(input.Documents)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if text == "" && len(docTexts) == 0 {
		return nil, &InputError{Message: "send a message or attach a document"}
	}

	if result, handled, err := o.handleCommand(ctx, working, text, docTexts); handled {
		return result, err
	}

	var result *TurnResult
	switch working.Phase {
	case session.PhaseCollecting:
		result, err = o.handleCollecting(ctx, working, text, docTexts)
	case session.PhaseQnA:
		result, err = o.handleQnA(ctx, working, text, onDelta)
	case session.PhaseViewingRecommendation:
		result, err = o.handleViewing(ctx, working, text, docTexts)
	case session.PhaseComplete:
		return nil, &StateError{
			Phase:   working.Phase,
			Command: text,
			Message: "this session is complete; send 'reset' to start a new one",
		}
	default:
		return nil, &StateError{Phase: working.Phase, Command: text, Message: "session is in an unexpected phase"}
	}
	if err != nil {
		return nil, err
	}

	if err := o.store.Save(ctx, working); err != nil {
		return nil, fmt.Errorf("failed to commit session %s: %w", sessionID, err)
	}
	return result, nil
}

// SessionState returns the stored state of a session for read-only callers.
func (o *Orchestrator) SessionState(ctx context.Context, sessionID string) (*session.Session, error) {
	return o.store.Load(ctx, sessionID)
}

// DeleteSession removes a session entirely.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	return o.store.Delete(ctx, sessionID)
}

// extractDocuments runs each attachment through the ingestion boundary.
// Extraction failure aborts the turn before any phase logic runs.
func (o *Orchestrator) extractDocuments(docs []ingestion.Document) ([]string, error) {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		text, err := o.extractor.ExtractText(doc)
		if err != nil {
			var unsupported *ingestion.UnsupportedFormatError
			if errors.As(err, &unsupported) {
				return nil, &InputError{Message: fmt.Sprintf("unsupported document format %q", unsupported.MimeType), Cause: err}
			}
			return nil, &InputError{Message: "could not read the attached document", Cause: err}
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// handleCommand intercepts session control commands before any dialogue.
// Returns handled=false for ordinary conversation. Commands are only
// recognized in text-only turns; a message with attachments is never a command.
func (o *Orchestrator) handleCommand(ctx context.Context, working *session.Session, text string, docTexts []string) (*TurnResult, bool, error) {
	if len(docTexts) > 0 {
		return nil, false, nil
	}

	switch strings.ToLower(text) {
	case "reset":
		working.Reset(false)
		if err := o.store.Save(ctx, working); err != nil {
			return nil, true, fmt.Errorf("failed to commit session %s: %w", working.ID, err)
		}
		return &TurnResult{
			Reply: "Session cleared. Send your CV and a job description whenever you're ready.",
			Phase: working.Phase,
		}, true, nil

	case "reset profile":
		if err := o.profiles.Clear(ctx, working.ID); err != nil {
			o.logger.Warn("failed to clear profile history", zap.String("session_id", working.ID), zap.Error(err))
		}
		working.Reset(false)
		if err := o.store.Save(ctx, working); err != nil {
			return nil, true, fmt.Errorf("failed to commit session %s: %w", working.ID, err)
		}
		return &TurnResult{
			Reply: "Session and profile history cleared. Send your CV and a job description to start fresh.",
			Phase: working.Phase,
		}, true, nil

	case "status":
		return &TurnResult{Reply: formatStatus(working), Phase: working.Phase}, true, nil

	case "done":
		return o.handleDone(ctx, working)

	default:
		return nil, false, nil
	}
}

// handleDone forces the phase forward: qna issues the recommendation with the
// honest remaining-gap state, viewing_recommendation closes the session.
func (o *Orchestrator) handleDone(ctx context.Context, working *session.Session) (*TurnResult, bool, error) {
	switch working.Phase {
	case session.PhaseQnA:
		job, ok := working.ActiveJobAnalysis()
		if !ok {
			return nil, true, &StateError{Phase: working.Phase, Command: "done", Message: "no active job analysis"}
		}
		working.AppendTurn(session.RoleUser, "done")
		reply, err := o.finishRecommendation(ctx, working, job)
		if err != nil {
			return nil, true, err
		}
		working.AppendTurn(session.RoleAdvisor, reply)
		if err := o.store.Save(ctx, working); err != nil {
			return nil, true, fmt.Errorf("failed to commit session %s: %w", working.ID, err)
		}
		return &TurnResult{Reply: reply, Phase: working.Phase, QuickReplies: viewingQuickReplies(working)}, true, nil

	case session.PhaseViewingRecommendation:
		working.AppendTurn(session.RoleUser, "done")
		if err := working.TransitionTo(session.PhaseComplete); err != nil {
			return nil, true, err
		}
		reply := "Good luck with the application! Send 'reset' if you want to evaluate another role."
		working.AppendTurn(session.RoleAdvisor, reply)
		if err := o.store.Save(ctx, working); err != nil {
			return nil, true, fmt.Errorf("failed to commit session %s: %w", working.ID, err)
		}
		return &TurnResult{Reply: reply, Phase: working.Phase}, true, nil

	default:
		return nil, true, &StateError{
			Phase:   working.Phase,
			Command: "done",
			Message: "there is no analysis in progress to finish",
		}
	}
}

// handleCollecting admits documents until both the CV and at least one job
// posting are present, then runs the analysis and moves the session forward.
func (o *Orchestrator) handleCollecting(ctx context.Context, working *session.Session, text string, docTexts []string) (*TurnResult, error) {
	if text != "" {
		working.AppendTurn(session.RoleUser, text)
	} else {
		working.AppendTurn(session.RoleUser, fmt.Sprintf("[attached %d document(s)]", len(docTexts)))
	}

	parts := docTexts
	if text != "" {
		parts = append(parts, text)
	}
	var chat string
	for _, part := range parts {
		switch classifyText(part) {
		case kindCV:
			working.CVText = ingestion.CleanText(part)
		case kindJob:
			for _, posting := range splitPostings(part) {
				working.AddJob(ingestion.CleanText(posting))
			}
		default:
			chat = part
		}
	}

	if strings.TrimSpace(working.CVText) != "" && len(working.Jobs) > 0 {
		return o.runAnalysis(ctx, working)
	}

	// Still missing something; keep the conversation going.
	reply, err := o.caps.Conversationalist.Converse(ctx, capability.ConversationContext{
		Phase:  string(working.Phase),
		Status: working.CollectingStatus(),
	}, chat, nil)
	if err != nil {
		return nil, err
	}
	working.AppendTurn(session.RoleAdvisor, reply.Text)
	return &TurnResult{Reply: reply.Text, Phase: working.Phase}, nil
}

// runAnalysis analyzes every not-yet-analyzed job concurrently, seeds each
// job's ledger, and advances the session to Q&A or straight to the
// recommendation when the active job has no gaps. A failure of any analysis
// aborts the whole transition; the stored session stays in collecting.
func (o *Orchestrator) runAnalysis(ctx context.Context, working *session.Session) (*TurnResult, error) {
	if err := working.TransitionTo(session.PhaseAnalyzing); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range working.Jobs {
		if job.Report != nil {
			continue
		}
		job := job
		g.Go(func() error {
			report, err := o.caps.Analyzer.Analyze(gctx, working.CVText, job.JobText)
			if err != nil {
				return err
			}
			ledger := gaps.NewLedger()
			if err := ledger.Seed(report.Gaps); err != nil {
				return err
			}
			job.Report = report
			job.Ledger = ledger
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	job, ok := working.ActiveJobAnalysis()
	if !ok {
		return nil, &StateError{Phase: working.Phase, Message: "no active job after analysis"}
	}
	summary := formatAnalysisSummary(working, job)

	if job.Ledger.Len() == 0 {
		rec, err := o.finishRecommendation(ctx, working, job)
		if err != nil {
			return nil, err
		}
		reply := summary + "\n\n" + rec
		working.AppendTurn(session.RoleAdvisor, reply)
		return &TurnResult{Reply: reply, Phase: working.Phase, QuickReplies: viewingQuickReplies(working)}, nil
	}

	if err := working.TransitionTo(session.PhaseQnA); err != nil {
		return nil, err
	}
	opening, err := o.caps.Conversationalist.Converse(ctx, capability.ConversationContext{
		Phase:    string(working.Phase),
		CVText:   working.CVText,
		JobText:  job.JobText,
		OpenGaps: job.Ledger.Remaining(),
		Opening:  true,
	}, "", nil)
	if err != nil {
		return nil, err
	}

	reply := summary + "\n\n" + opening.Text
	working.AppendTurn(session.RoleAdvisor, reply)
	return &TurnResult{Reply: reply, Phase: working.Phase, QuickReplies: []string{"done"}}, nil
}

// handleQnA runs one conversational exchange: generate the reply, reconcile
// the exchange against the ledger, and exit to the recommendation when every
// must-have gap is resolved or the turn cap is reached.
func (o *Orchestrator) handleQnA(ctx context.Context, working *session.Session, text string, onDelta llm.StreamFunc) (*TurnResult, error) {
	job, ok := working.ActiveJobAnalysis()
	if !ok {
		return nil, &StateError{Phase: working.Phase, Command: text, Message: "no active job analysis"}
	}

	working.AppendTurn(session.RoleUser, text)

	open := job.Ledger.Remaining()
	var target string
	if mustHave := job.Ledger.RemainingMustHave(); len(mustHave) > 0 {
		target = mustHave[0].Requirement
	}

	reply, err := o.caps.Conversationalist.Converse(ctx, capability.ConversationContext{
		Phase:     string(working.Phase),
		CVText:    working.CVText,
		JobText:   job.JobText,
		History:   working.RecentHistory(historyWindow),
		OpenGaps:  open,
		TargetGap: target,
	}, text, onDelta)
	if err != nil {
		return nil, err
	}

	// Reconciliation runs only once the full reply text exists.
	verdict, err := o.caps.Validator.Validate(ctx, open, capability.Exchange{
		UserMessage: text,
		ReplyText:   reply.Text,
	})
	if err != nil {
		return nil, err
	}
	if verdict.AddressedGapID != "" {
		if job.Ledger.ApplyResolution(verdict.AddressedGapID, verdict.ResolutionSummary) {
			job.ResolvedNotes = append(job.ResolvedNotes, verdict.ResolutionSummary)
		} else {
			// Advisory noise: the validator named a gap the ledger does not
			// track or already closed.
			o.logger.Debug("validator referenced unknown or closed gap",
				zap.String("session_id", working.ID),
				zap.String("gap_id", verdict.AddressedGapID))
		}
	}

	job.QnAUserTurns++
	working.AppendTurn(session.RoleAdvisor, reply.Text)

	if job.Ledger.AllResolved() || job.QnAUserTurns >= o.maxQnA {
		rec, err := o.finishRecommendation(ctx, working, job)
		if err != nil {
			return nil, err
		}
		full := reply.Text + "\n\n" + rec
		working.AppendTurn(session.RoleAdvisor, rec)
		return &TurnResult{Reply: full, Phase: working.Phase, QuickReplies: viewingQuickReplies(working)}, nil
	}

	return &TurnResult{Reply: reply.Text, Phase: working.Phase, QuickReplies: []string{"done"}}, nil
}

// finishRecommendation invokes Recommend exactly once for the job, with the
// ledger's true remaining-gap state, then moves the session into the
// recommendation phase and records the terminal snapshot to the profile.
func (o *Orchestrator) finishRecommendation(ctx context.Context, working *session.Session, job *session.JobAnalysis) (string, error) {
	input := capability.RecommendInput{
		RemainingGaps: job.Ledger.Remaining(),
		QnASummary:    strings.Join(working.RecentHistory(historyWindow*2), "\n"),
	}
	if job.Report != nil {
		input.FitScore = job.Report.FitScore
		input.Strengths = job.Report.Strengths
	}

	rec, err := o.caps.Recommender.Recommend(ctx, input)
	if err != nil {
		return "", err
	}
	job.Recommendation = rec

	if working.Phase != session.PhaseViewingRecommendation {
		if err := working.TransitionTo(session.PhaseViewingRecommendation); err != nil {
			return "", err
		}
	}

	snap := profile.Snapshot{
		SessionID:   working.ID,
		JobSummary:  firstLine(job.JobText),
		FitScore:    input.FitScore,
		Verdict:     string(rec.Verdict),
		CompletedAt: working.UpdatedAt,
	}
	for _, g := range input.RemainingGaps {
		snap.RemainingGaps = append(snap.RemainingGaps, g.Requirement)
	}
	if err := o.profiles.Record(ctx, working.ID, snap); err != nil {
		o.logger.Warn("failed to record profile snapshot", zap.String("session_id", working.ID), zap.Error(err))
	}

	return formatRecommendation(working, job), nil
}

// handleViewing navigates the recommendation: numeric selectors drill into
// its sections, a pasted posting re-enters analysis for a new job while
// keeping the CV and transcript.
func (o *Orchestrator) handleViewing(ctx context.Context, working *session.Session, text string, docTexts []string) (*TurnResult, error) {
	parts := docTexts
	if text != "" && classifyText(text) == kindJob {
		parts = append(parts, text)
	}
	if len(parts) > 0 {
		if text != "" {
			working.AppendTurn(session.RoleUser, text)
		} else {
			working.AppendTurn(session.RoleUser, fmt.Sprintf("[attached %d document(s)]", len(docTexts)))
		}
		added := false
		for _, part := range parts {
			if classifyText(part) != kindJob {
				continue
			}
			for _, posting := range splitPostings(part) {
				working.AddJob(ingestion.CleanText(posting))
				added = true
			}
		}
		if added {
			return o.runAnalysis(ctx, working)
		}
		return nil, &InputError{Message: "that document does not look like a job posting"}
	}

	job, ok := working.ActiveJobAnalysis()
	if !ok || job.Recommendation == nil {
		return nil, &StateError{Phase: working.Phase, Command: text, Message: "no recommendation to view"}
	}

	working.AppendTurn(session.RoleUser, text)
	var reply string
	switch text {
	case "1":
		reply = job.Recommendation.Rationale
	case "2":
		reply = formatActionItems(job.Recommendation)
	case "3":
		reply = formatGapReview(job)
	case "4":
		next, err := o.switchJob(ctx, working)
		if err != nil {
			return nil, err
		}
		reply = next
	default:
		reply = "You can pick a number: 1 rationale, 2 action items, 3 gap review, " +
			"4 switch job. Or paste another job posting, or send 'done' to finish."
	}
	working.AppendTurn(session.RoleAdvisor, reply)
	return &TurnResult{Reply: reply, Phase: working.Phase, QuickReplies: viewingQuickReplies(working)}, nil
}

// switchJob cycles the active job to the next loaded posting. A job that
// never got a recommendation (its Q&A was cut short by the switch away from
// it) gets one now, from its honest ledger state.
func (o *Orchestrator) switchJob(ctx context.Context, working *session.Session) (string, error) {
	if len(working.Jobs) < 2 {
		return "Only one job is loaded. Paste another posting to compare.", nil
	}
	next := (working.ActiveJob + 1) % len(working.Jobs)
	if err := working.SetActiveJob(next); err != nil {
		return "", err
	}
	job, _ := working.ActiveJobAnalysis()
	if job.Recommendation == nil {
		return o.finishRecommendation(ctx, working, job)
	}
	return formatRecommendation(working, job), nil
}

func viewingQuickReplies(working *session.Session) []string {
	replies := []string{"1", "2", "3"}
	if len(working.Jobs) > 1 {
		replies = append(replies, "4")
	}
	return append(replies, "done")
}

func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	mu, ok := o.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		o.locks[id] = mu
	}
	return mu
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
