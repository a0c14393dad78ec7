// Package session holds the durable state of one advisory conversation: the
// workflow phase, the collected documents, per-job analyses with their gap
// ledgers, and the full transcript. The orchestrator mutates a working copy
// of this state and commits it through a Store only when a turn succeeds.
package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/gaps"
)

// Phase is the workflow state the session is in.
type Phase string

// Workflow phases, in the order a session normally moves through them.
const (
	PhaseCollecting            Phase = "collecting"
	PhaseAnalyzing             Phase = "analyzing"
	PhaseQnA                   Phase = "qna"
	PhaseViewingRecommendation Phase = "viewing_recommendation"
	PhaseComplete              Phase = "complete"
)

// validTransitions is the complete transition relation. Anything not listed
// is invalid; phases are never skipped and never silently corrected.
var validTransitions = map[Phase][]Phase{
	PhaseCollecting:            {PhaseAnalyzing},
	PhaseAnalyzing:             {PhaseQnA, PhaseViewingRecommendation},
	PhaseQnA:                   {PhaseViewingRecommendation},
	PhaseViewingRecommendation: {PhaseComplete, PhaseAnalyzing},
	PhaseComplete:              {},
}

// TransitionError reports a phase change the workflow does not allow.
type TransitionError struct {
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %s -> %s", e.From, e.To)
}

// Turn is one transcript entry.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "advisor"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript roles.
const (
	RoleUser    = "user"
	RoleAdvisor = "advisor"
)

// JobAnalysis is everything the session knows about one job posting. Each job
// carries its own ledger and counters; analyses never share gap state.
type JobAnalysis struct {
	JobText        string                     `json:"job_text"`
	Report         *capability.AnalysisReport `json:"report,omitempty"`
	Ledger         *gaps.Ledger               `json:"ledger,omitempty"`
	Recommendation *capability.Recommendation `json:"recommendation,omitempty"`
	QnAUserTurns   int                        `json:"qna_user_turns"`
	ResolvedNotes  []string                   `json:"resolved_notes,omitempty"`
}

// Session is the aggregate persisted by a Store.
type Session struct {
	ID        string         `json:"id"`
	CVText    string         `json:"cv_text"`
	Jobs      []*JobAnalysis `json:"jobs"`
	ActiveJob int            `json:"active_job"`
	Phase     Phase          `json:"phase"`
	Turns     []Turn         `json:"turns"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New creates an empty session in the collecting phase. An empty id gets a
// generated UUID.
func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		ActiveJob: -1,
		Phase:     PhaseCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTurnID returns a lexicographically sortable turn identifier.
func NewTurnID() string {
	return ulid.Make().String()
}

// TransitionTo moves the session to the next phase, rejecting anything the
// transition relation does not allow.
func (s *Session) TransitionTo(next Phase) error {
	for _, allowed := range validTransitions[s.Phase] {
		if allowed == next {
			s.Phase = next
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return &TransitionError{From: s.Phase, To: next}
}

// AppendTurn records one transcript entry and returns it.
func (s *Session) AppendTurn(role, text string) Turn {
	turn := Turn{
		ID:        NewTurnID(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	s.Turns = append(s.Turns, turn)
	s.UpdatedAt = turn.CreatedAt
	return turn
}

// AddJob registers a new job posting and makes it the active one.
func (s *Session) AddJob(jobText string) *JobAnalysis {
	job := &JobAnalysis{JobText: jobText}
	s.Jobs = append(s.Jobs, job)
	s.ActiveJob = len(s.Jobs) - 1
	s.UpdatedAt = time.Now().UTC()
	return job
}

// ActiveJobAnalysis returns the job the conversation is currently about.
func (s *Session) ActiveJobAnalysis() (*JobAnalysis, bool) {
	if s.ActiveJob < 0 || s.ActiveJob >= len(s.Jobs) {
		return nil, false
	}
	return s.Jobs[s.ActiveJob], true
}

// SetActiveJob switches the conversation to another analyzed job.
func (s *Session) SetActiveJob(index int) error {
	if index < 0 || index >= len(s.Jobs) {
		return fmt.Errorf("no job at index %d", index)
	}
	s.ActiveJob = index
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// RecentHistory renders the last n transcript entries as "User:"/"Advisor:"
// lines, oldest first, for conversational prompting.
func (s *Session) RecentHistory(n int) []string {
	start := 0
	if len(s.Turns) > n {
		start = len(s.Turns) - n
	}
	lines := make([]string, 0, len(s.Turns)-start)
	for _, turn := range s.Turns[start:] {
		label := "User"
		if turn.Role == RoleAdvisor {
			label = "Advisor"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, turn.Text))
	}
	return lines
}

// Reset clears everything except the session identity. keepCV preserves the
// collected CV so a new job can be evaluated without re-uploading it.
func (s *Session) Reset(keepCV bool) {
	if !keepCV {
		s.CVText = ""
	}
	s.Jobs = nil
	s.ActiveJob = -1
	s.Turns = nil
	s.Phase = PhaseCollecting
	s.UpdatedAt = time.Now().UTC()
}

// Clone deep-copies the session through its JSON form. The orchestrator
// mutates clones and only commits them once a whole turn has succeeded.
func (s *Session) Clone() (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	var clone Session
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	return &clone, nil
}

// CollectingStatus describes which inputs are still missing, for the
// collecting-phase conversational prompt.
func (s *Session) CollectingStatus() string {
	var missing []string
	if strings.TrimSpace(s.CVText) == "" {
		missing = append(missing, "the CV")
	}
	if len(s.Jobs) == 0 {
		missing = append(missing, "a job description")
	}
	if len(missing) == 0 {
		return "CV and job description are both present"
	}
	return "still missing: " + strings.Join(missing, " and ")
}
