package clarify

import "context"

// Generator produces a completion for a single prompt, labelled with the
// operation it serves. *generation.Client implements it.
type Generator interface {
	GenerateAs(ctx context.Context, operation, prompt string, temperature float32, maxTokens int) (string, error)
}

// SessionStore persists sessions. Create and Update commit the session together
// with its new log entries, or not at all.
type SessionStore interface {
	// Get returns apperrors.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Session, error)
	// Create inserts a new session.
	Create(ctx context.Context, s *Session, entries []ConversationEntry) error
	// Update replaces the session if its stored version equals expectedVersion,
	// otherwise it returns apperrors.ErrConcurrentUpdate.
	Update(ctx context.Context, s *Session, expectedVersion int64, entries []ConversationEntry) error
}

// ConversationLog reads a session's log in append order.
type ConversationLog interface {
	Entries(ctx context.Context, sessionID string) ([]ConversationEntry, error)
}

// Store is the persistence the Machine needs.
type Store interface {
	SessionStore
	ConversationLog
}
