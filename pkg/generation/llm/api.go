// Package llm defines the provider-neutral completion interface used by clarifier.
package llm

import (
	"context"
	"fmt"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	RoleSystem    CompletionRole = "system"
	RoleUser      CompletionRole = "user"
	RoleAssistant CompletionRole = "assistant"
)

// CompletionMessage is a single message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string
	StopReason string // provider-specific, e.g. "stop", "end_turn", "max_tokens"
}

// LLMClient is implemented by every provider adapter and every middleware.
type LLMClient interface { //nolint:revive // name shared with the adapters
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this client.
	GetModelName() string
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewCompletionRequest builds a single-prompt request.
func NewCompletionRequest(prompt string, temperature float32, maxTokens int) CompletionRequest {
	return CompletionRequest{
		Messages:    []CompletionMessage{NewUserMessage(prompt)},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Prompt returns the concatenated content of all messages.
func (r *CompletionRequest) Prompt() string {
	if len(r.Messages) == 1 {
		return r.Messages[0].Content
	}
	var out string
	for i := range r.Messages {
		if i > 0 {
			out += "\n\n"
		}
		out += r.Messages[i].Content
	}
	return out
}

// LLMConfig holds what an adapter needs to reach its backend.
type LLMConfig struct { //nolint:revive // name shared with the adapters
	APIKey    string
	ModelName string
	BaseURL   string
}

// Validate checks the fields every adapter needs.
func (c *LLMConfig) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}
