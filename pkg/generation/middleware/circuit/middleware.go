package circuit

import (
	"context"
	"errors"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
)

// Middleware rejects calls with a transient llmerrors.Error while the breaker is open.
// Bad-prompt failures and caller cancellation do not count against the backend.
func Middleware(b Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !b.Allow() {
					return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeTransient,
						"circuit breaker is "+b.GetState().String())
				}

				resp, err := next.Complete(ctx, req)
				switch {
				case err == nil:
					b.Record(true)
				case llmerrors.Is(err, llmerrors.ErrorTypeBadPrompt), errors.Is(err, context.Canceled):
				default:
					b.Record(false)
				}
				return resp, err //nolint:wrapcheck // pass through unchanged
			},
			next.GetModelName,
		)
	}
}
