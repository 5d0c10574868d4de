// Package utils holds text helpers shared by the generation stack.
package utils

import (
	"fmt"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens with a tiktoken codec. Every model is
// approximated with the GPT-4 encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter returns a counter for model.
func NewTokenCounter(model string) (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the token count of text, or a 4-chars-per-token estimate
// if the codec is unavailable.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// FitsContext reports whether prompt plus the completion budget fits in window tokens.
// A non-positive window always fits.
func (tc *TokenCounter) FitsContext(prompt string, maxTokens, window int) bool {
	if window <= 0 {
		return true
	}
	return tc.CountTokens(prompt)+maxTokens <= window
}

// TruncateRunes returns the first limit characters of s and whether anything was cut.
// A negative limit returns s unchanged.
func TruncateRunes(s string, limit int) (string, bool) {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}
