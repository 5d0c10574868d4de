package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarifier/internal/mocks"
	"clarifier/pkg/apperrors"
	"clarifier/pkg/clarify"
	"clarifier/pkg/generation"
	"clarifier/pkg/templates"
)

// setupTestStore opens an initialized in-memory database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.Context(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSession(id string) *clarify.Session {
	now := time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)
	return &clarify.Session{
		ID:      id,
		OwnerID: "owner-1",
		Status:  clarify.StatusClarifying,
		Context: clarify.Context{
			OriginalInput:   "Review my pitch",
			DocumentExcerpt: "Slide 1: the problem",
			Answers:         []string{},
			QuestionsAsked:  []string{"Who is the audience?"},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testEntry(sessionID, id string, kind clarify.EntryKind, content string, metadata map[string]any) clarify.ConversationEntry {
	return clarify.ConversationEntry{
		ID:        id,
		SessionID: sessionID,
		Kind:      kind,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func TestCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()

	session := testSession("s1")
	require.NoError(t, store.Create(ctx, session, []clarify.ConversationEntry{
		testEntry("s1", "e1", clarify.EntryUserInput, "Review my pitch", nil),
		testEntry("s1", "e2", clarify.EntryClarification, "Who is the audience?", map[string]any{"question_index": 0}),
	}))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.OwnerID, got.OwnerID)
	assert.Equal(t, session.Status, got.Status)
	assert.Equal(t, session.Context, got.Context)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, session.CreatedAt.Equal(got.CreatedAt))

	entries, err := store.Entries(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, clarify.EntryUserInput, entries[0].Kind)
	assert.Nil(t, entries[0].Metadata)
	assert.Equal(t, "Who is the audience?", entries[1].Content)
	assert.InDelta(t, 0, entries[1].Metadata["question_index"], 0)
}

func TestGetUnknownSession(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	entries, err := store.Entries(t.Context(), "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateRejectsInvalidContext(t *testing.T) {
	store := setupTestStore(t)

	session := testSession("s1")
	session.Context.Answers = []string{"a1", "a2"}
	err := store.Create(t.Context(), session, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = store.Get(t.Context(), "s1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateDuplicateRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Create(ctx, testSession("s1"), nil))
	err := store.Create(ctx, testSession("s1"), []clarify.ConversationEntry{
		testEntry("s1", "e1", clarify.EntryUserInput, "dup", nil),
	})
	assert.ErrorIs(t, err, apperrors.ErrStoreFailed)

	entries, err := store.Entries(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateIsConditionalOnVersion(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()
	require.NoError(t, store.Create(ctx, testSession("s1"), nil))

	next := testSession("s1")
	next.Context.Answers = []string{"Investors"}
	next.Version = 2
	require.NoError(t, store.Update(ctx, next, 1, []clarify.ConversationEntry{
		testEntry("s1", "e1", clarify.EntryUser, "Investors", nil),
	}))

	stale := testSession("s1")
	stale.Status = clarify.StatusCreatingAgents
	stale.Version = 2
	err := store.Update(ctx, stale, 1, []clarify.ConversationEntry{
		testEntry("s1", "e2", clarify.EntrySystem, "should not land", nil),
	})
	assert.ErrorIs(t, err, apperrors.ErrConcurrentUpdate)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, clarify.StatusClarifying, got.Status)
	assert.Equal(t, []string{"Investors"}, got.Context.Answers)
	assert.Equal(t, int64(2), got.Version)

	entries, err := store.Entries(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpdateUnknownSession(t *testing.T) {
	store := setupTestStore(t)
	err := store.Update(t.Context(), testSession("missing"), 1, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateEntryFailureRollsBackSession(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()
	require.NoError(t, store.Create(ctx, testSession("s1"), []clarify.ConversationEntry{
		testEntry("s1", "e1", clarify.EntryUserInput, "Review my pitch", nil),
	}))

	next := testSession("s1")
	next.Context.Answers = []string{"Investors"}
	next.Version = 2
	// e1 already exists, so the entry insert fails after the session row changed.
	err := store.Update(ctx, next, 1, []clarify.ConversationEntry{
		testEntry("s1", "e1", clarify.EntryUser, "Investors", nil),
	})
	require.ErrorIs(t, err, apperrors.ErrStoreFailed)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Context.Answers)
	assert.Equal(t, int64(1), got.Version)
}

func TestCanceledContextWritesNothing(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Create(t.Context(), testSession("s1"), nil))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	next := testSession("s1")
	next.Context.Answers = []string{"Investors"}
	next.Version = 2
	err := store.Update(ctx, next, 1, nil)
	require.ErrorIs(t, err, context.Canceled)

	got, err := store.Get(t.Context(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestCountByStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Create(ctx, testSession("s1"), nil))
	require.NoError(t, store.Create(ctx, testSession("s2"), nil))
	done := testSession("s3")
	done.Status = clarify.StatusCompleted
	require.NoError(t, store.Create(ctx, done, nil))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[clarify.Status]int{
		clarify.StatusClarifying: 2,
		clarify.StatusCompleted:  1,
	}, counts)
}

func TestReopenKeepsSchemaAndData(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "clarifier.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, testSession("s1"), nil))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	version, err := GetSchemaVersion(ctx, reopened.DB())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	got, err := reopened.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Review my pitch", got.Context.OriginalInput)
	assert.Equal(t, int64(1), got.Version)
}

func TestRejectsNewerSchema(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()
	require.NoError(t, setSchemaVersion(ctx, store.DB(), CurrentSchemaVersion+1))

	err := initializeSchema(ctx, store.DB())
	assert.Error(t, err)
}

// The machine runs unchanged on top of the SQLite store.
func TestMachineOverSQLite(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()

	mock := mocks.NewMockLLMClient()
	mock.RespondSequence(`["Who is the audience?", "What stage are you at?"]`, `["Any deadline?"]`, "yes")
	gen := generation.NewClient(mock)
	renderer := templates.MustNewRenderer()
	machine := clarify.NewMachine(store,
		clarify.NewQuestionSynthesizer(gen, renderer),
		clarify.NewReadinessEvaluator(gen, renderer))

	started, err := machine.Start(ctx, "owner-1", "Review my pitch", "")
	require.NoError(t, err)

	res, err := machine.Clarify(ctx, started.SessionID, "Investors")
	require.NoError(t, err)
	assert.Equal(t, clarify.ReplyClarifying, res.Status)
	assert.Equal(t, []string{"Any deadline?"}, res.Questions)

	res, err = machine.Clarify(ctx, started.SessionID, "Seed stage")
	require.NoError(t, err)
	assert.Equal(t, clarify.ReplyReadyForAgents, res.Status)

	status, err := machine.GetStatus(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, clarify.StatusCreatingAgents, status.Status)
	assert.Len(t, status.Context.QuestionsAsked, 3)

	entries, err := machine.Conversation(ctx, started.SessionID)
	require.NoError(t, err)
	kinds := make([]clarify.EntryKind, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []clarify.EntryKind{
		clarify.EntryUserInput,
		clarify.EntryClarification, clarify.EntryClarification,
		clarify.EntryUser, clarify.EntryClarification,
		clarify.EntryUser, clarify.EntrySystem,
	}, kinds)
}
