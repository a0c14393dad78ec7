// Package profile keeps a cross-session record of a candidate's completed
// analyses. It only ever sees terminal snapshots: the orchestrator writes one
// entry per issued recommendation and can clear the history on request.
package profile

import (
	"context"
	"sync"
	"time"
)

// Snapshot is the terminal state of one job analysis.
type Snapshot struct {
	SessionID     string    `json:"session_id"`
	JobSummary    string    `json:"job_summary"` // first line of the posting
	FitScore      int       `json:"fit_score"`
	Verdict       string    `json:"verdict"`
	RemainingGaps []string  `json:"remaining_gaps,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Store records and retrieves analysis history for one candidate.
type Store interface {
	Record(ctx context.Context, candidateID string, snap Snapshot) error
	History(ctx context.Context, candidateID string) ([]Snapshot, error)
	Clear(ctx context.Context, candidateID string) error
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	history map[string][]Snapshot
}

// NewMemoryStore creates an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]Snapshot)}
}

// Record appends one snapshot to the candidate's history.
func (m *MemoryStore) Record(_ context.Context, candidateID string, snap Snapshot) error {
	m.mu.Lock()
	m.history[candidateID] = append(m.history[candidateID], snap)
	m.mu.Unlock()
	return nil
}

// History returns the candidate's snapshots, oldest first.
func (m *MemoryStore) History(_ context.Context, candidateID string) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.history[candidateID]
	out := make([]Snapshot, len(snaps))
	copy(out, snaps)
	return out, nil
}

// Clear removes the candidate's history.
func (m *MemoryStore) Clear(_ context.Context, candidateID string) error {
	m.mu.Lock()
	delete(m.history, candidateID)
	m.mu.Unlock()
	return nil
}
