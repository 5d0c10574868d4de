package clarify

import (
	"context"
	"strings"

	"clarifier/pkg/logx"
	"clarifier/pkg/metrics"
	"clarifier/pkg/templates"
)

// DecisionSource says how a readiness Decision was reached.
type DecisionSource string

const (
	SourceShortCircuit DecisionSource = "short_circuit"
	SourceService      DecisionSource = "service"
	SourceFallback     DecisionSource = "fallback"
)

// Readiness limits. Options are clamped to them.
const (
	MaxReadinessTokens  = 10
	MinReadinessAnswers = 2
)

// Decision is the outcome of a readiness evaluation.
type Decision struct {
	Ready  bool
	Source DecisionSource
}

// ReadinessEvaluator decides whether enough has been learned to create agents.
type ReadinessEvaluator struct {
	gen             Generator
	renderer        *templates.Renderer
	recorder        metrics.Recorder
	logger          *logx.Logger
	temperature     float32
	maxTokens       int
	minAnswers      int
	fallbackAnswers int
}

// ReadinessOption configures a ReadinessEvaluator.
type ReadinessOption func(*ReadinessEvaluator)

// WithReadinessSampling overrides temperature and max tokens, clamped to [0,1]
// and MaxReadinessTokens.
func WithReadinessSampling(temperature float32, maxTokens int) ReadinessOption {
	return func(e *ReadinessEvaluator) {
		e.temperature = clampTemperature(temperature)
		if maxTokens > 0 {
			e.maxTokens = min(maxTokens, MaxReadinessTokens)
		}
	}
}

// WithAnswerThresholds sets the answers needed before the service is asked
// (never below MinReadinessAnswers) and the answers that count as ready when it
// cannot be reached (never below minAnswers).
func WithAnswerThresholds(minAnswers, fallbackAnswers int) ReadinessOption {
	return func(e *ReadinessEvaluator) {
		if minAnswers > 0 {
			e.minAnswers = max(minAnswers, MinReadinessAnswers)
		}
		if fallbackAnswers > 0 {
			e.fallbackAnswers = fallbackAnswers
		}
		e.fallbackAnswers = max(e.fallbackAnswers, e.minAnswers)
	}
}

// WithReadinessRecorder sets the metrics recorder.
func WithReadinessRecorder(r metrics.Recorder) ReadinessOption {
	return func(e *ReadinessEvaluator) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewReadinessEvaluator creates an evaluator with the defaults: temperature 0.3,
// 10 tokens, at least 2 answers before asking, 3 answers when the service fails.
func NewReadinessEvaluator(gen Generator, renderer *templates.Renderer, opts ...ReadinessOption) *ReadinessEvaluator {
	e := &ReadinessEvaluator{
		gen:             gen,
		renderer:        renderer,
		recorder:        metrics.Nop(),
		logger:          logx.NewLogger("clarify").With("readiness"),
		temperature:     0.3,
		maxTokens:       MaxReadinessTokens,
		minAnswers:      MinReadinessAnswers,
		fallbackAnswers: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsReady is Evaluate without the source.
func (e *ReadinessEvaluator) IsReady(ctx context.Context, c *Context) bool {
	return e.Evaluate(ctx, c).Ready
}

// Evaluate never fails. Service errors fall back to counting answers.
func (e *ReadinessEvaluator) Evaluate(ctx context.Context, c *Context) Decision {
	d := e.evaluate(ctx, c)
	e.recorder.ReadinessDecision(string(d.Source), d.Ready)
	logx.Debug(ctx, "clarify", "readiness: ready=%t source=%s answers=%d", d.Ready, d.Source, len(c.Answers))
	return d
}

func (e *ReadinessEvaluator) evaluate(ctx context.Context, c *Context) Decision {
	if len(c.Answers) < e.minAnswers {
		return Decision{Ready: false, Source: SourceShortCircuit}
	}

	fallback := Decision{Ready: len(c.Answers) >= e.fallbackAnswers, Source: SourceFallback}

	prompt, err := e.renderer.Render(templates.ReadinessTemplate, &templates.ClarifyData{
		OriginalInput: c.OriginalInput,
		Answers:       c.Answers,
	})
	if err != nil {
		e.logger.Error("failed to render readiness prompt: %v", err)
		return fallback
	}

	out, err := e.gen.GenerateAs(ctx, OperationReadiness, prompt, e.temperature, e.maxTokens)
	if err != nil {
		e.logger.Warn("readiness check failed, using answer count: %v", err)
		return fallback
	}

	return Decision{
		Ready:  strings.ToLower(strings.TrimSpace(out)) == "yes",
		Source: SourceService,
	}
}
