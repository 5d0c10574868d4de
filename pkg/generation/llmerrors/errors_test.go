package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, ErrorTypeRateLimit, ClassifyStatus(http.StatusTooManyRequests))
	assert.Equal(t, ErrorTypeAuth, ClassifyStatus(http.StatusUnauthorized))
	assert.Equal(t, ErrorTypeAuth, ClassifyStatus(http.StatusForbidden))
	assert.Equal(t, ErrorTypeTransient, ClassifyStatus(http.StatusBadGateway))
	assert.Equal(t, ErrorTypeTransient, ClassifyStatus(http.StatusRequestTimeout))
	assert.Equal(t, ErrorTypeBadPrompt, ClassifyStatus(http.StatusBadRequest))
	assert.Equal(t, ErrorTypeUnknown, ClassifyStatus(http.StatusOK))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	already := NewError(ErrorTypeAuth, "bad key")
	assert.Same(t, already, Classify(already))

	tests := []struct {
		err  error
		want ErrorType
	}{
		{context.DeadlineExceeded, ErrorTypeTransient},
		{fmt.Errorf("post: %w", io.ErrUnexpectedEOF), ErrorTypeTransient},
		{errors.New("Rate limit reached for gpt-4"), ErrorTypeRateLimit},
		{errors.New("invalid API key provided"), ErrorTypeAuth},
		{errors.New("dial tcp: connection refused"), ErrorTypeTransient},
		{errors.New("something odd"), ErrorTypeUnknown},
	}
	for _, tt := range tests {
		got := Classify(tt.err)
		require.True(t, IsServiceError(got), tt.err.Error())
		assert.Equal(t, tt.want, TypeOf(got), tt.err.Error())
		assert.ErrorIs(t, got, tt.err)
	}
}

func TestErrorFormatting(t *testing.T) {
	assert.Equal(t, "LLM error (auth): bad key", NewError(ErrorTypeAuth, "bad key").Error())
	assert.Equal(t, "LLM error (transient): boom",
		NewErrorWithCause(ErrorTypeTransient, errors.New("boom"), "").Error())
	assert.Equal(t, "LLM error (rate_limit): status 429",
		(&Error{Type: ErrorTypeRateLimit, StatusCode: 429}).Error())
}

func TestIsAndTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewError(ErrorTypeEmptyResponse, "no content"))
	assert.True(t, Is(wrapped, ErrorTypeEmptyResponse))
	assert.False(t, Is(wrapped, ErrorTypeAuth))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
	assert.False(t, IsServiceError(errors.New("plain")))
}

func TestSanitizePrompt(t *testing.T) {
	assert.Equal(t, "short", SanitizePrompt("short", 500))

	long := strings.Repeat("a", 300) + strings.Repeat("b", 300)
	out := SanitizePrompt(long, 200)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 100)))
	assert.Contains(t, out, "[600 chars, hash:")
}
