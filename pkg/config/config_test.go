package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvHost, EnvPort, EnvDBPath, EnvModel} {
		t.Setenv(name, "")
	}
	t.Cleanup(func() { SetConfigForTesting(nil) })
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	require.NoError(t, LoadConfig(dir))
	assert.FileExists(t, filepath.Join(dir, ProjectConfigDir, ConfigFileJSON))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultModel, cfg.Generation.Model)
	assert.Equal(t, 1000, cfg.Clarification.ExcerptLimit)
	assert.InDelta(t, 0.7, cfg.Clarification.QuestionTemperature, 1e-6)
	assert.Equal(t, 300, cfg.Clarification.QuestionMaxTokens)
	assert.InDelta(t, 0.3, cfg.Clarification.ReadinessTemperature, 1e-6)
	assert.Equal(t, 10, cfg.Clarification.ReadinessMaxTokens)
	assert.Equal(t, 2, cfg.Clarification.MinAnswersForReadiness)
	assert.Equal(t, 3, cfg.Clarification.FallbackReadyAnswers)
	assert.Equal(t, filepath.Join(dir, ProjectConfigDir, DefaultDBFile), cfg.DatabasePath(dir))
}

func TestLoadConfigYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProjectConfigDir), 0755))
	yamlDoc := `
server:
  port: 9100
generation:
  model: claude-sonnet-4-20250514
clarification:
  max_questions: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigDir, ConfigFileYAML), []byte(yamlDoc), 0644))

	require.NoError(t, LoadConfig(dir))
	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Clarification.MaxQuestions)
	provider, err := cfg.Generation.ResolvedProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, provider)
}

func TestLoadConfigRejectsBrokenFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProjectConfigDir), 0755))
	path := filepath.Join(dir, ProjectConfigDir, ConfigFileJSON)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be parsed")

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "8123")
	t.Setenv(EnvModel, "gemini-2.5-flash")
	t.Setenv(EnvDBPath, "/tmp/other.db")
	dir := t.TempDir()

	require.NoError(t, LoadConfig(dir))
	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.Generation.Model)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath(dir))

	// Overrides are not written back.
	onDisk, err := loadConfigFromFile(filepath.Join(dir, ProjectConfigDir, ConfigFileJSON))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, onDisk.Server.Port)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"unknown model", func(c *Config) { c.Generation.Model = "mystery-1" }, "cannot infer provider"},
		{"explicit provider", func(c *Config) { c.Generation.Model = "mystery-1"; c.Generation.Provider = ProviderEino }, ""},
		{"bad provider", func(c *Config) { c.Generation.Provider = "carrier-pigeon" }, "not supported"},
		{"hot temperature", func(c *Config) { c.Clarification.QuestionTemperature = 1.5 }, "question_temperature"},
		{"negative excerpt", func(c *Config) { c.Clarification.ExcerptLimit = -1 }, "excerpt_limit"},
		{"excerpt above limit", func(c *Config) { c.Clarification.ExcerptLimit = 1001 }, "excerpt_limit"},
		{"no questions", func(c *Config) { c.Clarification.MaxQuestions = -1 }, "max_questions"},
		{"too many questions", func(c *Config) { c.Clarification.MaxQuestions = 9 }, "max_questions"},
		{"four questions", func(c *Config) { c.Clarification.MaxQuestions = 4 }, ""},
		{"question tokens above limit", func(c *Config) { c.Clarification.QuestionMaxTokens = 4000 }, "question_max_tokens"},
		{"negative question tokens", func(c *Config) { c.Clarification.QuestionMaxTokens = -1 }, "question_max_tokens"},
		{"readiness tokens above limit", func(c *Config) { c.Clarification.ReadinessMaxTokens = 500 }, "readiness_max_tokens"},
		{"negative readiness tokens", func(c *Config) { c.Clarification.ReadinessMaxTokens = -5 }, "readiness_max_tokens"},
		{"single answer readiness", func(c *Config) { c.Clarification.MinAnswersForReadiness = 1 }, "min_answers_for_readiness"},
		{"fallback below min", func(c *Config) {
			c.Clarification.MinAnswersForReadiness = 3
			c.Clarification.FallbackReadyAnswers = 2
		}, "fallback_ready_answers"},
		{"fallback equals min", func(c *Config) { c.Clarification.FallbackReadyAnswers = 2 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createDefaultConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigRejectsOutOfRangeClarification(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProjectConfigDir), 0755))
	yamlCfg := `clarification:
  max_questions: 9
  question_max_tokens: 4000
  readiness_max_tokens: 500
  min_answers_for_readiness: 1
  fallback_ready_answers: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigDir, ConfigFileYAML), []byte(yamlCfg), 0644))

	err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_questions")
}

func TestGetConfigBeforeLoad(t *testing.T) {
	SetConfigForTesting(nil)
	_, err := GetConfig()
	assert.Error(t, err)
}

func TestGetModelProvider(t *testing.T) {
	cases := map[string]string{
		ModelGPT4:        ProviderOpenAI,
		"gpt-5-preview":  ProviderOpenAI,
		ModelClaudeHaiku: ProviderAnthropic,
		"gemini-3.0-pro": ProviderGoogle,
		"llama3.2:3b":    ProviderOllama,
		"Mistral-7B":     ProviderOllama,
	}
	for model, want := range cases {
		got, err := GetModelProvider(model)
		require.NoError(t, err, model)
		assert.Equal(t, want, got, model)
	}
}
