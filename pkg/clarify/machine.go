package clarify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clarifier/pkg/apperrors"
	"clarifier/pkg/logx"
	"clarifier/pkg/metrics"
	"clarifier/pkg/utils"
)

// Machine is the session clarification state machine.
//
//	clarifying --Clarify(ready)--> creating_agents --Advance--> active --Advance--> completed
//
// Clarify and Advance are serialized per session in-process; the store's version
// check covers writers in other processes.
type Machine struct {
	store        Store
	synth        *QuestionSynthesizer
	readiness    *ReadinessEvaluator
	recorder     metrics.Recorder
	logger       *logx.Logger
	now          func() time.Time
	newID        func() (string, error)
	excerptLimit int
	locks        *sessionLocks
}

// Option configures a Machine.
type Option func(*Machine)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator sets the session id source.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(m *Machine) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithExcerptLimit bounds the stored document excerpt, up to MaxExcerptRunes.
func WithExcerptLimit(n int) Option {
	return func(m *Machine) {
		if n > 0 && n <= MaxExcerptRunes {
			m.excerptLimit = n
		}
	}
}

// NewMachine creates a Machine.
func NewMachine(store Store, synth *QuestionSynthesizer, readiness *ReadinessEvaluator, opts ...Option) *Machine {
	m := &Machine{
		store:        store,
		synth:        synth,
		readiness:    readiness,
		recorder:     metrics.Nop(),
		logger:       logx.NewLogger("clarify"),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        newSessionID,
		excerptLimit: MaxExcerptRunes,
		locks:        newSessionLocks(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return id.String(), nil
}

// Start opens a session, asks the first batch of questions and persists both.
func (m *Machine) Start(ctx context.Context, ownerID, originalInput, documentText string) (*StartResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.Validation("owner_id", "must not be blank")
	}
	if strings.TrimSpace(originalInput) == "" {
		return nil, apperrors.Validation("user_input", "must not be blank")
	}

	excerpt := ""
	if strings.TrimSpace(documentText) != "" {
		var truncated bool
		excerpt, truncated = utils.TruncateRunes(documentText, m.excerptLimit)
		if truncated {
			logx.Debug(ctx, "clarify", "document text truncated to %d runes", m.excerptLimit)
		}
	}

	questions := m.synth.Synthesize(ctx, originalInput, excerpt, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := m.newID()
	if err != nil {
		return nil, err
	}
	now := m.now()

	session := &Session{
		ID:      id,
		OwnerID: ownerID,
		Status:  StatusClarifying,
		Context: Context{
			OriginalInput:   originalInput,
			DocumentExcerpt: excerpt,
			Answers:         []string{},
			QuestionsAsked:  append([]string{}, questions...),
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	entries := make([]ConversationEntry, 0, len(questions)+1)
	entries = append(entries, m.entry(id, EntryUserInput, originalInput, map[string]any{
		"has_document": excerpt != "",
	}, now))
	entries = append(entries, m.questionEntries(id, questions, 0, now)...)

	if err := m.store.Create(ctx, session, entries); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.recorder.SessionStarted()
	m.logger.Info("started session %s with %d questions", id, len(questions))

	return &StartResult{
		SessionID: id,
		Status:    ReplyClarifying,
		Context:   session.Context.Clone(),
		Questions: questions,
	}, nil
}

// Clarify records an answer. When the evaluator says the context is sufficient
// the session moves to creating_agents and no questions are returned; otherwise
// a new batch of questions is asked.
func (m *Machine) Clarify(ctx context.Context, sessionID, answer string) (*ClarifyResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.Validation("session_id", "must not be blank")
	}
	if strings.TrimSpace(answer) == "" {
		return nil, apperrors.Validation("user_response", "must not be blank")
	}

	unlock := m.locks.Lock(sessionID)
	defer unlock()

	ctx = logx.WithSessionID(ctx, sessionID)

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != StatusClarifying {
		return nil, apperrors.StateConflict("session %s is %s, not %s", sessionID, session.Status, StatusClarifying)
	}

	updated := session.Context.Clone()
	updated.Answers = append(updated.Answers, answer)
	round := len(updated.Answers)

	now := m.now()
	entries := []ConversationEntry{
		m.entry(sessionID, EntryUser, answer, map[string]any{"round": round}, now),
	}

	decision := m.readiness.Evaluate(ctx, &updated)

	next := session.Clone()
	next.Context = updated
	result := &ClarifyResult{SessionID: sessionID}

	if decision.Ready {
		next.Status = StatusCreatingAgents
		entries = append(entries, m.entry(sessionID, EntrySystem,
			"Clarification complete. Ready to create agents.",
			map[string]any{"readiness_source": string(decision.Source), "answers": round}, now))
		result.Status = ReplyReadyForAgents
	} else {
		questions := m.synth.Synthesize(ctx, updated.OriginalInput, updated.DocumentExcerpt, updated.Answers)
		next.Context.QuestionsAsked = append(next.Context.QuestionsAsked, questions...)
		entries = append(entries, m.questionEntries(sessionID, questions, round, now)...)
		result.Status = ReplyClarifying
		result.Questions = questions
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next.Version = session.Version + 1
	next.UpdatedAt = now
	if err := m.store.Update(ctx, next, session.Version, entries); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	m.recorder.ClarificationRound(result.Status)
	if next.Status != session.Status {
		m.recorder.Transition(string(session.Status), string(next.Status))
		m.logger.Info("session %s ready for agents after %d answers (%s)", sessionID, round, decision.Source)
	}
	logx.DebugState(ctx, "clarify", "round", fmt.Sprintf("%d answers, status %s", round, next.Status))

	result.Context = next.Context.Clone()
	return result, nil
}

// GetStatus reads the session without changing it.
func (m *Machine) GetStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.Validation("session_id", "must not be blank")
	}
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		SessionID: session.ID,
		Status:    session.Status,
		Context:   session.Context.Clone(),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}, nil
}

// Advance moves a handed-off session one step forward:
// creating_agents to active, or active to completed.
func (m *Machine) Advance(ctx context.Context, sessionID string, to Status) (*StatusResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.Validation("session_id", "must not be blank")
	}
	if to != StatusActive && to != StatusCompleted {
		return nil, apperrors.Validation("status", fmt.Sprintf("cannot advance to %q", to))
	}

	unlock := m.locks.Lock(sessionID)
	defer unlock()

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanAdvanceTo(to) {
		return nil, apperrors.StateConflict("session %s cannot move from %s to %s", sessionID, session.Status, to)
	}

	now := m.now()
	next := session.Clone()
	next.Status = to
	next.Version = session.Version + 1
	next.UpdatedAt = now

	entries := []ConversationEntry{
		m.entry(sessionID, EntrySystem, fmt.Sprintf("Status changed from %s to %s", session.Status, to),
			map[string]any{"from": string(session.Status), "to": string(to)}, now),
	}
	if err := m.store.Update(ctx, next, session.Version, entries); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	m.recorder.Transition(string(session.Status), string(to))
	m.logger.Info("session %s moved from %s to %s", sessionID, session.Status, to)

	return &StatusResult{
		SessionID: next.ID,
		Status:    next.Status,
		Context:   next.Context.Clone(),
		CreatedAt: next.CreatedAt,
		UpdatedAt: next.UpdatedAt,
	}, nil
}

// Conversation returns the session's log in append order.
func (m *Machine) Conversation(ctx context.Context, sessionID string) ([]ConversationEntry, error) {
	if _, err := m.GetStatus(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.store.Entries(ctx, sessionID)
}

func (m *Machine) questionEntries(sessionID string, questions []string, round int, now time.Time) []ConversationEntry {
	entries := make([]ConversationEntry, 0, len(questions))
	for i, q := range questions {
		entries = append(entries, m.entry(sessionID, EntryClarification, q, map[string]any{
			"question_index": i,
			"round":          round,
		}, now))
	}
	return entries
}

func (m *Machine) entry(sessionID string, kind EntryKind, content string, metadata map[string]any, now time.Time) ConversationEntry {
	return ConversationEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
	}
}
