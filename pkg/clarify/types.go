// Package clarify runs the clarification phase of a feedback session: it asks
// follow-up questions about the user's request until the answers are rich enough
// to create agents, then hands the session off.
package clarify

import (
	"strings"
	"time"

	"clarifier/pkg/apperrors"
)

// Status is the lifecycle stage of a session. It only moves forward.
type Status string

const (
	StatusClarifying     Status = "clarifying"
	StatusCreatingAgents Status = "creating_agents"
	StatusActive         Status = "active"
	StatusCompleted      Status = "completed"
)

// Reply statuses returned by Start and Clarify.
const (
	ReplyClarifying     = "clarifying"
	ReplyReadyForAgents = "ready_for_agents"
)

// MaxExcerptRunes bounds the stored document excerpt.
const MaxExcerptRunes = 1000

func (s Status) rank() int {
	switch s {
	case StatusClarifying:
		return 0
	case StatusCreatingAgents:
		return 1
	case StatusActive:
		return 2
	case StatusCompleted:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether next is the immediate successor of s.
func (s Status) CanAdvanceTo(next Status) bool {
	return s.IsValid() && next.IsValid() && next.rank() == s.rank()+1
}

// ParseStatus validates a status string.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return "", apperrors.Validation("status", "unknown status "+v)
	}
	return s, nil
}

// Context is everything learned about the user's request.
type Context struct {
	OriginalInput   string   `json:"user_input"`
	DocumentExcerpt string   `json:"pdf_content,omitempty"`
	Answers         []string `json:"clarifications"`
	QuestionsAsked  []string `json:"questions_asked"`
}

// Validate checks the invariants every stored context must hold.
func (c *Context) Validate() error {
	switch {
	case strings.TrimSpace(c.OriginalInput) == "":
		return apperrors.Validation("user_input", "must not be blank")
	case len([]rune(c.DocumentExcerpt)) > MaxExcerptRunes:
		return apperrors.Validation("pdf_content", "exceeds excerpt limit")
	case len(c.Answers) > len(c.QuestionsAsked):
		return apperrors.Validation("clarifications", "more answers than questions asked")
	}
	return nil
}

// Clone returns a deep copy. Nil slices become empty so snapshots encode as [].
func (c *Context) Clone() Context {
	return Context{
		OriginalInput:   c.OriginalInput,
		DocumentExcerpt: c.DocumentExcerpt,
		Answers:         append(make([]string, 0, len(c.Answers)), c.Answers...),
		QuestionsAsked:  append(make([]string, 0, len(c.QuestionsAsked)), c.QuestionsAsked...),
	}
}

// Session is one user's clarification session.
type Session struct {
	ID        string    `json:"session_id"`
	OwnerID   string    `json:"owner_id"`
	Status    Status    `json:"status"`
	Context   Context   `json:"context"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Context = s.Context.Clone()
	return &out
}

// EntryKind is the type of a conversation log entry.
type EntryKind string

const (
	EntryUserInput     EntryKind = "user_input"
	EntryClarification EntryKind = "clarification"
	EntryUser          EntryKind = "user"
	EntrySystem        EntryKind = "system"
)

// ConversationEntry is one append-only log line of a session.
type ConversationEntry struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Kind      EntryKind      `json:"message_type"`
	Content   string         `json:"content"`
	AgentID   string         `json:"agent_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// StartResult is returned by Machine.Start.
type StartResult struct {
	SessionID string   `json:"session_id"`
	Status    string   `json:"status"`
	Context   Context  `json:"context"`
	Questions []string `json:"questions"`
}

// ClarifyResult is returned by Machine.Clarify. Questions is nil once ready.
type ClarifyResult struct {
	SessionID string   `json:"session_id"`
	Status    string   `json:"status"`
	Questions []string `json:"questions"`
	Context   Context  `json:"context"`
}

// StatusResult is returned by Machine.GetStatus.
type StatusResult struct {
	SessionID string    `json:"session_id"`
	Status    Status    `json:"status"`
	Context   Context   `json:"context"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
