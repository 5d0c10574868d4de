package clarify

import (
	"context"
	"sync"

	"clarifier/pkg/apperrors"
)

// MemoryStore is an in-process Store. Each write commits under one mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	entries  map[string][]ConversationEntry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		entries:  make(map[string][]ConversationEntry),
	}
}

// Get implements SessionStore.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session %s not found", id)
	}
	return s.Clone(), nil
}

// Create implements SessionStore.
func (m *MemoryStore) Create(ctx context.Context, s *Session, entries []ConversationEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Context.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return apperrors.StateConflict("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	m.entries[s.ID] = append(m.entries[s.ID], entries...)
	return nil
}

// Update implements SessionStore.
func (m *MemoryStore) Update(ctx context.Context, s *Session, expectedVersion int64, entries []ConversationEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Context.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[s.ID]
	if !ok {
		return apperrors.NotFound("session %s not found", s.ID)
	}
	if current.Version != expectedVersion {
		return apperrors.ConcurrentUpdate(s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	m.entries[s.ID] = append(m.entries[s.ID], entries...)
	return nil
}

// Entries implements ConversationLog.
func (m *MemoryStore) Entries(ctx context.Context, sessionID string) ([]ConversationEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ConversationEntry, len(m.entries[sessionID]))
	copy(out, m.entries[sessionID])
	return out, nil
}
