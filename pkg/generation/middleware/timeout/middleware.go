// Package timeout bounds each generation call.
package timeout

import (
	"context"
	"time"

	"clarifier/pkg/generation/llm"
)

// DefaultTimeout applies when the configured duration is not positive.
const DefaultTimeout = 20 * time.Second

// Middleware gives each Complete call its own deadline.
func Middleware(duration time.Duration) llm.Middleware {
	if duration <= 0 {
		duration = DefaultTimeout
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()
				return next.Complete(timeoutCtx, req)
			},
			next.GetModelName,
		)
	}
}
