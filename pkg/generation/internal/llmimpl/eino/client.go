// Package eino adapts an eino ChatModel to llm.LLMClient. It is the path for
// OpenAI-compatible endpoints (vLLM, LiteLLM, Azure proxies) configured by base_url.
package eino

import (
	"context"
	"fmt"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
)

// Client wraps any eino BaseChatModel.
type Client struct {
	chatModel model.BaseChatModel
	model     string
}

// NewClient builds an eino OpenAI ChatModel for cfg.
func NewClient(ctx context.Context, cfg llm.LLMConfig) (llm.LLMClient, error) {
	chatModel, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.ModelName,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init eino chat model: %w", err)
	}
	return NewFromChatModel(chatModel, cfg.ModelName), nil
}

// NewFromChatModel wraps an existing chat model.
func NewFromChatModel(chatModel model.BaseChatModel, modelName string) llm.LLMClient {
	return &Client{chatModel: chatModel, model: modelName}
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // request passed by value per interface
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]*schema.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, schema.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(msg.Content))
		}
	}

	resp, err := c.chatModel.Generate(ctx, messages,
		model.WithTemperature(in.Temperature),
		model.WithMaxTokens(in.MaxTokens),
	)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "eino chat model returned nil message")
	}

	out := llm.CompletionResponse{Content: resp.Content}
	if resp.ResponseMeta != nil {
		out.StopReason = resp.ResponseMeta.FinishReason
	}
	return out, nil
}

// GetModelName returns the model name for this client.
func (c *Client) GetModelName() string {
	return c.model
}
