package metrics

import (
	"context"
	"errors"
	"time"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
	"clarifier/pkg/logx"
	"clarifier/pkg/utils"
)

type operationKey struct{}

// WithOperation labels generation calls made with ctx, e.g. "questions" or "readiness".
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFrom returns the label set by WithOperation, or "generate".
func OperationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return "generate"
}

// UsageExtractor estimates token usage for a call.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// TokenUsageExtractor counts tokens with tiktoken.
func TokenUsageExtractor(counter *utils.TokenCounter) UsageExtractor {
	return func(req llm.CompletionRequest, resp llm.CompletionResponse) (int, int) {
		return counter.CountTokens(req.Prompt()), counter.CountTokens(resp.Content)
	}
}

// Middleware records latency, token usage and outcome of every call.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if recorder == nil {
		recorder = Nop()
	}
	if usageExtractor == nil {
		usageExtractor = TokenUsageExtractor(nil)
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				model := next.GetModelName()
				operation := OperationFrom(ctx)

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				errorType := ""
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				} else {
					errorType = errorLabel(err)
				}

				recorder.ObserveRequest(model, operation, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := "success"
					if err != nil {
						status = "error:" + errorType
					}
					logger.Info("LLM request: model=%s op=%s tokens=%d+%d status=%s duration=%dms",
						model, operation, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // pass through unchanged
			},
			next.GetModelName,
		)
	}
}

func errorLabel(err error) string {
	switch {
	case llmerrors.IsServiceError(err):
		return llmerrors.TypeOf(err).String()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
