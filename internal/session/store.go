package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Store.Load and Store.Delete for unknown sessions.
var ErrNotFound = errors.New("session not found")

// Store persists sessions. Save replaces the stored state wholesale; partial
// writes are not part of the contract.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in memory, deep-copying on both Load and Save so
// callers can never mutate the stored state in place.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone()
}

// Save stores a copy of the session, replacing any previous state.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	clone, err := s.Clone()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = clone
	m.mu.Unlock()
	return nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}
