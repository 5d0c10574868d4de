package ollama

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
)

func TestCompleteAgainstFakeServer(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &seen)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3.1:8b","message":{"role":"assistant","content":"no"},"done":true,"done_reason":"stop"}`+"\n")
	}))
	defer srv.Close()

	client := NewOllamaClient(llm.LLMConfig{ModelName: "llama3.1:8b", BaseURL: srv.URL})
	resp, err := client.Complete(t.Context(), llm.NewCompletionRequest("ready?", 0.3, 10))
	require.NoError(t, err)
	assert.Equal(t, "no", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, false, seen["stream"])
	options, ok := seen["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 10, options["num_predict"], 0)
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"loading model"}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(llm.LLMConfig{ModelName: "llama3.1:8b", BaseURL: srv.URL})
	_, err := client.Complete(t.Context(), llm.NewCompletionRequest("q", 0.7, 300))
	require.Error(t, err)
	assert.True(t, llmerrors.IsServiceError(err))
}

func TestDefaultHost(t *testing.T) {
	client, ok := NewOllamaClient(llm.LLMConfig{ModelName: "qwen2"}).(*Client)
	require.True(t, ok)
	assert.Equal(t, DefaultHost, client.hostURL)
}

func TestGetStopReason(t *testing.T) {
	assert.Equal(t, "incomplete", getStopReason(&api.ChatResponse{Done: false}))
	assert.Equal(t, "max_tokens", getStopReason(&api.ChatResponse{Done: true, DoneReason: "length"}))
	assert.Equal(t, "end_turn", getStopReason(&api.ChatResponse{Done: true}))
}
