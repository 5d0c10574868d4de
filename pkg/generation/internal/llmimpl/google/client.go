// Package google adapts the Gemini API (google.golang.org/genai) to llm.LLMClient.
package google

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/genai"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
)

// GeminiClient wraps genai.Client. The SDK client needs a context, so it is
// created lazily on the first call.
type GeminiClient struct {
	client  *genai.Client
	initErr error
	once    sync.Once
	apiKey  string
	model   string
}

// NewGeminiClient creates a raw client.
func NewGeminiClient(cfg llm.LLMConfig) llm.LLMClient {
	return &GeminiClient{
		apiKey: cfg.APIKey,
		model:  cfg.ModelName,
	}
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // request passed by value per interface
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if g.initErr != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, g.initErr, "failed to create Gemini client")
	}

	var system []string
	var contents []*genai.Content
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	temperature := in.Temperature
	//nolint:gosec // validated by the caller
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(in.MaxTokens),
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no candidates in Gemini response")
	}

	return llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: string(result.Candidates[0].FinishReason),
	}, nil
}

// GetModelName returns the model name for this client.
func (g *GeminiClient) GetModelName() string {
	return g.model
}

// genai formats API errors as "Error 429, Message: ..., Status: ...".
var statusPattern = regexp.MustCompile(`Error (\d{3}),`)

func classifyError(err error) error {
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ := strconv.Atoi(m[1])
		return &llmerrors.Error{
			Err:        err,
			Type:       llmerrors.ClassifyStatus(status),
			StatusCode: status,
			Message:    fmt.Sprintf("Gemini API returned %d", status),
		}
	}
	return llmerrors.Classify(err)
}
