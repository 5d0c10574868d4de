// Package logging turns blank completions into classified errors and logs the request that produced them.
package logging

import (
	"context"
	"strings"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
	"clarifier/pkg/logx"
)

const maxLoggedPrompt = 2000

// EmptyResponseMiddleware fails calls whose content is blank with ErrorTypeEmptyResponse
// and logs the sanitized prompt. Errors from next pass through unchanged.
func EmptyResponseMiddleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("generation")
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					if llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) {
						logEmptyResponse(logger, next.GetModelName(), req, resp.StopReason)
					}
					//nolint:wrapcheck // pass through unchanged
					return resp, err
				}
				if strings.TrimSpace(resp.Content) == "" {
					logEmptyResponse(logger, next.GetModelName(), req, resp.StopReason)
					return resp, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
						"model "+next.GetModelName()+" returned no content (stop_reason="+resp.StopReason+")")
				}
				return resp, nil
			},
			next.GetModelName,
		)
	}
}

//nolint:gocritic // request passed by value like the rest of the chain
func logEmptyResponse(logger *logx.Logger, model string, req llm.CompletionRequest, stopReason string) {
	logger.Error("Empty response from %s (stop_reason=%q, temperature=%v, max_tokens=%d)",
		model, stopReason, req.Temperature, req.MaxTokens)
	for i := range req.Messages {
		logger.Error("  message[%d] %s: %s", i, req.Messages[i].Role,
			llmerrors.SanitizePrompt(req.Messages[i].Content, maxLoggedPrompt))
	}
}
