package clarify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarifier/pkg/templates"
)

func newTestEvaluator(t *testing.T, svc *service, rec *fakeRecorder) *ReadinessEvaluator {
	t.Helper()
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	return NewReadinessEvaluator(svc.client(), renderer, WithReadinessRecorder(rec))
}

func contextWithAnswers(n int) *Context {
	c := &Context{OriginalInput: "Review my pitch"}
	for i := 0; i < n; i++ {
		c.QuestionsAsked = append(c.QuestionsAsked, "q")
		c.Answers = append(c.Answers, "a")
	}
	return c
}

func TestReadinessShortCircuitsBelowTwoAnswers(t *testing.T) {
	for _, n := range []int{0, 1} {
		svc := newService()
		svc.readiness = func(int) reply { return reply{content: "yes"} }
		rec := newFakeRecorder()
		eval := newTestEvaluator(t, svc, rec)

		d := eval.Evaluate(t.Context(), contextWithAnswers(n))

		assert.Equal(t, Decision{Ready: false, Source: SourceShortCircuit}, d)
		assert.Zero(t, svc.mock.CallCount(), "no service call with %d answers", n)
		assert.Equal(t, 1, rec.decisions[string(SourceShortCircuit)])
	}
}

func TestReadinessInterpretsResponse(t *testing.T) {
	tests := []struct {
		response string
		want     bool
	}{
		{"yes", true},
		{"YES", true},
		{"  Yes \n", true},
		{"no", false},
		{"Yes.", false},
		{"yes, probably", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		svc := newService()
		svc.readiness = func(int) reply { return reply{content: tt.response} }
		eval := newTestEvaluator(t, svc, newFakeRecorder())

		d := eval.Evaluate(t.Context(), contextWithAnswers(2))

		assert.Equal(t, tt.want, d.Ready, "response %q", tt.response)
		assert.Equal(t, SourceService, d.Source)
	}
}

func TestReadinessRequestShape(t *testing.T) {
	svc := newService()
	eval := newTestEvaluator(t, svc, newFakeRecorder())

	c := contextWithAnswers(2)
	c.Answers = []string{"seed stage", "investors"}
	eval.IsReady(t.Context(), c)

	req := svc.mock.LastRequest()
	assert.InDelta(t, 0.3, float64(req.Temperature), 1e-6)
	assert.Equal(t, 10, req.MaxTokens)
	assert.Contains(t, req.Prompt(), `Clarifications provided: ["seed stage","investors"]`)
	assert.Contains(t, req.Prompt(), "User's original input: Review my pitch")
}

func TestReadinessFallsBackToAnswerCount(t *testing.T) {
	tests := []struct {
		answers int
		want    bool
	}{
		{2, false},
		{3, true},
		{5, true},
	}
	for _, tt := range tests {
		svc := newService()
		svc.readiness = func(int) reply { return reply{err: errors.New("connection refused")} }
		rec := newFakeRecorder()
		eval := newTestEvaluator(t, svc, rec)

		d := eval.Evaluate(t.Context(), contextWithAnswers(tt.answers))

		assert.Equal(t, Decision{Ready: tt.want, Source: SourceFallback}, d, "%d answers", tt.answers)
		assert.Equal(t, 1, rec.decisions[string(SourceFallback)])
	}
}

func TestReadinessThresholdOptions(t *testing.T) {
	svc := newService()
	svc.readiness = func(int) reply { return reply{err: errors.New("down")} }
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	eval := NewReadinessEvaluator(svc.client(), renderer, WithAnswerThresholds(2, 2))

	d := eval.Evaluate(t.Context(), contextWithAnswers(2))
	assert.Equal(t, Decision{Ready: true, Source: SourceFallback}, d)
}

func TestReadinessOptionsAreClamped(t *testing.T) {
	svc := newService()
	svc.readiness = func(int) reply { return reply{err: errors.New("down")} }
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	eval := NewReadinessEvaluator(svc.client(), renderer,
		WithAnswerThresholds(1, 1),
		WithReadinessSampling(3, 500))

	assert.Equal(t, MinReadinessAnswers, eval.minAnswers)
	assert.Equal(t, MinReadinessAnswers, eval.fallbackAnswers)
	assert.Equal(t, MaxReadinessTokens, eval.maxTokens)
	assert.InDelta(t, 1.0, eval.temperature, 1e-6)

	d := eval.Evaluate(t.Context(), contextWithAnswers(1))
	assert.Equal(t, Decision{Ready: false, Source: SourceShortCircuit}, d)
	assert.Zero(t, svc.readinessCalls.Load())
}
