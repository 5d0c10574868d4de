package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/llmerrors"
)

type fixedClient struct {
	content string
	err     error
}

func (f fixedClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{Content: f.content, StopReason: "stop"}, f.err
}

func (f fixedClient) GetModelName() string { return "fixed" }

func TestBlankContentBecomesEmptyResponse(t *testing.T) {
	client := llm.Chain(fixedClient{content: "  \n"}, EmptyResponseMiddleware(nil))

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest("prompt", 0.7, 300))
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse))
}

func TestContentPassesThrough(t *testing.T) {
	client := llm.Chain(fixedClient{content: "no"}, EmptyResponseMiddleware(nil))

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest("prompt", 0.3, 10))
	require.NoError(t, err)
	assert.Equal(t, "no", resp.Content)
}

func TestErrorsPassThrough(t *testing.T) {
	upstream := errors.New("boom")
	client := llm.Chain(fixedClient{err: upstream}, EmptyResponseMiddleware(nil))

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest("prompt", 0.3, 10))
	assert.Same(t, upstream, err)
}
