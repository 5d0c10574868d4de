package anthropic

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
)

func TestCompleteAgainstFakeServer(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &seen)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "yes"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 1}
		}`)
	}))
	defer srv.Close()

	client := NewClaudeClient(llm.LLMConfig{APIKey: "ak", ModelName: "claude-sonnet-4-20250514", BaseURL: srv.URL})
	req := llm.CompletionRequest{
		Messages:    []llm.CompletionMessage{llm.NewSystemMessage("be brief"), llm.NewUserMessage("ready?")},
		MaxTokens:   10,
		Temperature: 0.3,
	}
	resp, err := client.Complete(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "yes", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.InDelta(t, 10, seen["max_tokens"], 0)
	assert.NotNil(t, seen["system"])
	assert.Len(t, seen["messages"], 1)
}

func TestCompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`)
	}))
	defer srv.Close()

	client := NewClaudeClient(llm.LLMConfig{APIKey: "ak", ModelName: "claude-3-5-haiku-20241022", BaseURL: srv.URL})
	_, err := client.Complete(t.Context(), llm.NewCompletionRequest("q", 0.7, 300))
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeRateLimit))
}

func TestCompleteRejectsSystemOnly(t *testing.T) {
	client := NewClaudeClient(llm.LLMConfig{APIKey: "ak", ModelName: "claude-3-5-haiku-20241022"})
	_, err := client.Complete(t.Context(), llm.CompletionRequest{
		Messages:  []llm.CompletionMessage{llm.NewSystemMessage("only system")},
		MaxTokens: 10,
	})
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeBadPrompt))
}
