package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct{ reply string }

func (s stubClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{Content: s.reply}, nil
}

func (s stubClient) GetModelName() string { return "stub" }

func tagging(tag string, order *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				*order = append(*order, tag)
				resp, err := next.Complete(ctx, req)
				resp.Content = tag + "(" + resp.Content + ")"
				return resp, err
			},
			next.GetModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	client := Chain(stubClient{reply: "x"}, tagging("a", &order), tagging("b", &order))

	resp, err := client.Complete(context.Background(), NewCompletionRequest("hi", 0.5, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, "a(b(x))", resp.Content)
	assert.Equal(t, "stub", client.GetModelName())
}

func TestChainWithoutMiddleware(t *testing.T) {
	base := stubClient{reply: "plain"}
	assert.Equal(t, base, Chain(base))
}

func TestPrompt(t *testing.T) {
	req := NewCompletionRequest("only", 0.3, 10)
	assert.Equal(t, "only", req.Prompt())

	req.Messages = []CompletionMessage{NewSystemMessage("sys"), NewUserMessage("user")}
	assert.Equal(t, "sys\n\nuser", req.Prompt())
}
