package config

import (
	"fmt"
	"strings"
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
	// ProviderEino routes through an eino ChatModel against any OpenAI-compatible endpoint.
	ProviderEino = "eino"
)

// Model names.
const (
	ModelGPT4          = "gpt-4"
	ModelGPT4o         = "gpt-4o"
	ModelGPT4oMini     = "gpt-4o-mini"
	ModelClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelClaudeHaiku   = "claude-3-5-haiku-20241022"
	ModelGemini25Flash = "gemini-2.5-flash"
	ModelLlama31       = "llama3.1:8b"
)

// ModelInfo describes a known model.
type ModelInfo struct {
	Provider      string
	ContextWindow int
}

// KnownModels lists models clarifier has been run against.
//
//nolint:gochecknoglobals // read-only lookup table
var KnownModels = map[string]ModelInfo{
	ModelGPT4:          {Provider: ProviderOpenAI, ContextWindow: 8192},
	ModelGPT4o:         {Provider: ProviderOpenAI, ContextWindow: 128000},
	ModelGPT4oMini:     {Provider: ProviderOpenAI, ContextWindow: 128000},
	ModelClaudeSonnet4: {Provider: ProviderAnthropic, ContextWindow: 200000},
	ModelClaudeHaiku:   {Provider: ProviderAnthropic, ContextWindow: 200000},
	ModelGemini25Flash: {Provider: ProviderGoogle, ContextWindow: 1000000},
	ModelLlama31:       {Provider: ProviderOllama, ContextWindow: 128000},
}

// ProviderPatterns maps model name prefixes to providers for unlisted models.
//
//nolint:gochecknoglobals // read-only lookup table
var ProviderPatterns = []struct {
	Prefix   string
	Provider string
}{
	{"gpt-", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"claude-", ProviderAnthropic},
	{"gemini-", ProviderGoogle},
	{"llama", ProviderOllama},
	{"mistral", ProviderOllama},
	{"qwen", ProviderOllama},
}

// GetModelProvider resolves a model name to its provider.
func GetModelProvider(model string) (string, error) {
	if info, ok := KnownModels[model]; ok {
		return info.Provider, nil
	}
	lower := strings.ToLower(model)
	for _, p := range ProviderPatterns {
		if strings.HasPrefix(lower, p.Prefix) {
			return p.Provider, nil
		}
	}
	return "", fmt.Errorf("cannot infer provider for model %q: set generation.provider", model)
}

// IsKnownProvider reports whether provider has a client implementation.
func IsKnownProvider(provider string) bool {
	switch provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOllama, ProviderEino:
		return true
	}
	return false
}

// APIKeyName returns the secret holding credentials for provider. Ollama takes a host instead.
func APIKeyName(provider string) string {
	switch provider {
	case ProviderOpenAI, ProviderEino:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_GENAI_API_KEY"
	case ProviderOllama:
		return "OLLAMA_HOST"
	}
	return ""
}

// GetAPIKey returns the credential for provider from secrets or the environment.
func GetAPIKey(provider string) (string, error) {
	name := APIKeyName(provider)
	if name == "" {
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	return GetSecret(name)
}
