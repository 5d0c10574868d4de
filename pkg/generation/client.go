// Package generation is clarifier's text-generation client: one prompt in, one
// completion out, every failure classified as an *llmerrors.Error.
package generation

import (
	"context"
	"strings"

	"clarifier/pkg/apperrors"
	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
	"clarifier/pkg/generation/middleware/metrics"
)

// Client issues single-prompt completions. It never retries.
type Client struct {
	llm llm.LLMClient
}

// NewClient wraps an already-chained LLMClient.
func NewClient(c llm.LLMClient) *Client {
	return &Client{llm: c}
}

// Generate validates its arguments, makes exactly one outbound call, and returns
// the completion text. Invalid arguments yield an apperrors validation error with
// no call made; upstream failures yield an *llmerrors.Error.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	switch {
	case strings.TrimSpace(prompt) == "":
		return "", apperrors.Validation("prompt", "must not be blank")
	case temperature < 0 || temperature > 1:
		return "", apperrors.Validation("temperature", "must be within [0,1]")
	case maxTokens <= 0:
		return "", apperrors.Validation("max_tokens", "must be positive")
	}

	resp, err := c.llm.Complete(ctx, llm.NewCompletionRequest(prompt, temperature, maxTokens))
	if err != nil {
		return "", llmerrors.Classify(err)
	}
	return resp.Content, nil
}

// GenerateAs is Generate with the metrics operation label set.
func (c *Client) GenerateAs(ctx context.Context, operation, prompt string, temperature float32, maxTokens int) (string, error) {
	return c.Generate(metrics.WithOperation(ctx, operation), prompt, temperature, maxTokens)
}

// ModelName reports the configured model.
func (c *Client) ModelName() string {
	return c.llm.GetModelName()
}
