package clarify

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clarifier/internal/mocks"
	"clarifier/pkg/generation"
	"clarifier/pkg/generation/llm"
	"clarifier/pkg/templates"
)

// reply is a scripted service response.
type reply struct {
	content string
	err     error
}

// service routes mock completions by operation: readiness prompts are the ones
// sent with the readiness token budget.
type service struct {
	mock           *mocks.MockLLMClient
	questions      func(call int) reply
	readiness      func(call int) reply
	questionCalls  atomic.Int32
	readinessCalls atomic.Int32
}

func newService() *service {
	s := &service{
		mock:      mocks.NewMockLLMClient(),
		questions: func(int) reply { return reply{content: `["Who is the audience?", "What stage are you at?"]`} },
		readiness: func(int) reply { return reply{content: "no"} },
	}
	s.mock.OnComplete(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		var r reply
		if req.MaxTokens == 10 {
			r = s.readiness(int(s.readinessCalls.Add(1)))
		} else {
			r = s.questions(int(s.questionCalls.Add(1)))
		}
		return llm.CompletionResponse{Content: r.content}, r.err
	})
	return s
}

func (s *service) client() *generation.Client {
	return generation.NewClient(s.mock)
}

// countingStore counts writes on top of a MemoryStore.
type countingStore struct {
	*MemoryStore
	writes atomic.Int32
}

func (c *countingStore) Create(ctx context.Context, s *Session, entries []ConversationEntry) error {
	c.writes.Add(1)
	return c.MemoryStore.Create(ctx, s, entries)
}

func (c *countingStore) Update(ctx context.Context, s *Session, expectedVersion int64, entries []ConversationEntry) error {
	c.writes.Add(1)
	return c.MemoryStore.Update(ctx, s, expectedVersion, entries)
}

// fakeRecorder counts clarification metrics.
type fakeRecorder struct {
	mu          sync.Mutex
	started     int
	rounds      map[string]int
	fallbacks   map[string]int
	decisions   map[string]int
	transitions []string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		rounds:    make(map[string]int),
		fallbacks: make(map[string]int),
		decisions: make(map[string]int),
	}
}

func (f *fakeRecorder) SessionStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *fakeRecorder) ClarificationRound(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds[outcome]++
}

func (f *fakeRecorder) QuestionFallback(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks[reason]++
}

func (f *fakeRecorder) ReadinessDecision(source string, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions[source]++
}

func (f *fakeRecorder) Transition(from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, from+"->"+to)
}

type harness struct {
	svc      *service
	store    *countingStore
	recorder *fakeRecorder
	machine  *Machine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	renderer, err := templates.NewRenderer()
	require.NoError(t, err)

	h := &harness{
		svc:      newService(),
		store:    &countingStore{MemoryStore: NewMemoryStore()},
		recorder: newFakeRecorder(),
	}
	gen := h.svc.client()
	h.machine = NewMachine(h.store,
		NewQuestionSynthesizer(gen, renderer, WithSynthesizerRecorder(h.recorder)),
		NewReadinessEvaluator(gen, renderer, WithReadinessRecorder(h.recorder)),
		WithRecorder(h.recorder),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
	return h
}

// start opens a session and answers it n times while the service says "no".
func (h *harness) start(t *testing.T, answers int) string {
	t.Helper()
	ctx := t.Context()

	res, err := h.machine.Start(ctx, "owner-1", "I want feedback on my startup pitch", "")
	require.NoError(t, err)
	for i := 0; i < answers; i++ {
		_, err := h.machine.Clarify(ctx, res.SessionID, "answer")
		require.NoError(t, err)
	}
	return res.SessionID
}
