package clarify

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"

	"clarifier/pkg/logx"
	"clarifier/pkg/metrics"
	"clarifier/pkg/templates"
	"clarifier/pkg/utils"
)

// Operation labels passed to the Generator.
const (
	OperationQuestions = "questions"
	OperationReadiness = "readiness"
)

// Fallback reasons recorded when synthesis cannot use the service output.
const (
	FallbackServiceError = "service_error"
	FallbackRenderError  = "render_error"
	FallbackNotArray     = "not_array"
	FallbackDecodeError  = "decode_error"
	FallbackEmpty        = "empty"
)

// Question batch limits. Options are clamped to them.
const (
	MaxQuestionsPerBatch = 4
	MaxQuestionTokens    = 300
)

// FallbackQuestions is returned whenever the service output cannot be used.
// Callers get a copy.
func FallbackQuestions() []string {
	return []string{
		"What specific aspect of this topic concerns you most?",
		"What kind of feedback are you looking for - technical, strategic, or user experience?",
		"What's your background with this topic?",
	}
}

// QuestionSynthesizer asks the generation service for clarifying questions.
type QuestionSynthesizer struct {
	gen          Generator
	renderer     *templates.Renderer
	recorder     metrics.Recorder
	logger       *logx.Logger
	temperature  float32
	maxTokens    int
	maxQuestions int
	excerptLimit int
}

// SynthesizerOption configures a QuestionSynthesizer.
type SynthesizerOption func(*QuestionSynthesizer)

// WithQuestionSampling overrides temperature and max tokens. Temperature is
// clamped to [0,1] and maxTokens to MaxQuestionTokens; a non-positive maxTokens
// keeps the default.
func WithQuestionSampling(temperature float32, maxTokens int) SynthesizerOption {
	return func(s *QuestionSynthesizer) {
		s.temperature = clampTemperature(temperature)
		if maxTokens > 0 {
			s.maxTokens = min(maxTokens, MaxQuestionTokens)
		}
	}
}

// WithMaxQuestions caps the number of questions kept from one response, up to
// MaxQuestionsPerBatch.
func WithMaxQuestions(n int) SynthesizerOption {
	return func(s *QuestionSynthesizer) {
		if n > 0 {
			s.maxQuestions = min(n, MaxQuestionsPerBatch)
		}
	}
}

func clampTemperature(t float32) float32 {
	return max(0, min(t, 1))
}

// WithSynthesizerRecorder sets the metrics recorder.
func WithSynthesizerRecorder(r metrics.Recorder) SynthesizerOption {
	return func(s *QuestionSynthesizer) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewQuestionSynthesizer creates a synthesizer with the default sampling
// (temperature 0.7, 300 tokens, at most 4 questions).
func NewQuestionSynthesizer(gen Generator, renderer *templates.Renderer, opts ...SynthesizerOption) *QuestionSynthesizer {
	s := &QuestionSynthesizer{
		gen:          gen,
		renderer:     renderer,
		recorder:     metrics.Nop(),
		logger:       logx.NewLogger("clarify").With("questions"),
		temperature:  0.7,
		maxTokens:    MaxQuestionTokens,
		maxQuestions: MaxQuestionsPerBatch,
		excerptLimit: MaxExcerptRunes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns between one and maxQuestions questions. It never fails:
// any problem with the service or its output yields FallbackQuestions.
func (s *QuestionSynthesizer) Synthesize(ctx context.Context, originalInput, excerpt string, priorAnswers []string) []string {
	questions, reason := s.synthesize(ctx, originalInput, excerpt, priorAnswers)
	if reason != "" {
		s.recorder.QuestionFallback(reason)
		logx.Debug(ctx, "clarify", "question fallback: %s", reason)
		return FallbackQuestions()
	}
	return questions
}

func (s *QuestionSynthesizer) synthesize(ctx context.Context, originalInput, excerpt string, priorAnswers []string) ([]string, string) {
	excerpt, _ = utils.TruncateRunes(excerpt, s.excerptLimit)

	prompt, err := s.renderer.Render(templates.QuestionsTemplate, &templates.ClarifyData{
		OriginalInput: originalInput,
		Excerpt:       excerpt,
		Answers:       priorAnswers,
		MaxQuestions:  s.maxQuestions,
	})
	if err != nil {
		s.logger.Error("failed to render questions prompt: %v", err)
		return nil, FallbackRenderError
	}

	out, err := s.gen.GenerateAs(ctx, OperationQuestions, prompt, s.temperature, s.maxTokens)
	if err != nil {
		s.logger.Warn("question generation failed: %v", err)
		return nil, FallbackServiceError
	}

	return s.parse(out)
}

// parse accepts only a bare JSON array of strings.
func (s *QuestionSynthesizer) parse(out string) ([]string, string) {
	trimmed := strings.TrimSpace(out)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		s.logger.Warn("question response is not a JSON array: %.80q", trimmed)
		return nil, FallbackNotArray
	}

	var raw []string
	if err := sonic.UnmarshalString(trimmed, &raw); err != nil {
		s.logger.Warn("failed to decode question array: %v", err)
		return nil, FallbackDecodeError
	}

	questions := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == s.maxQuestions {
			break
		}
	}
	if len(questions) == 0 {
		return nil, FallbackEmpty
	}
	return questions, ""
}
