package generation

import (
	"context"
	"fmt"
	"time"

	"clarifier/pkg/config"
	"clarifier/pkg/generation/internal/llmimpl/anthropic"
	"clarifier/pkg/generation/internal/llmimpl/eino"
	"clarifier/pkg/generation/internal/llmimpl/google"
	"clarifier/pkg/generation/internal/llmimpl/ollama"
	"clarifier/pkg/generation/internal/llmimpl/openaiofficial"
	"clarifier/pkg/generation/llm"
	"clarifier/pkg/generation/middleware/circuit"
	"clarifier/pkg/generation/middleware/logging"
	"clarifier/pkg/generation/middleware/metrics"
	"clarifier/pkg/generation/middleware/timeout"
	"clarifier/pkg/logx"
	"clarifier/pkg/utils"
)

// Factory builds the provider client and wraps it in the middleware chain.
type Factory struct {
	cfg      config.GenerationConfig
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewFactory returns a factory for cfg. A nil recorder disables generation metrics.
func NewFactory(cfg config.GenerationConfig, recorder metrics.Recorder) *Factory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Factory{
		cfg:      cfg,
		recorder: recorder,
		logger:   logx.NewLogger("generation"),
	}
}

// CreateLLMClient returns the provider client wrapped as
//
//	metrics -> circuit -> timeout -> empty-response -> provider
func (f *Factory) CreateLLMClient(ctx context.Context) (llm.LLMClient, error) {
	provider, err := f.cfg.ResolvedProvider()
	if err != nil {
		return nil, err
	}

	base, err := f.createProviderClient(ctx, provider)
	if err != nil {
		return nil, err
	}
	return f.Wrap(base), nil
}

// Wrap applies the middleware chain to an existing client.
func (f *Factory) Wrap(base llm.LLMClient) llm.LLMClient {
	counter, err := utils.NewTokenCounter(base.GetModelName())
	if err != nil {
		f.logger.Warn("Token counter unavailable, estimating usage: %v", err)
	}

	middlewares := []llm.Middleware{
		metrics.Middleware(f.recorder, metrics.TokenUsageExtractor(counter), f.logger),
	}
	if f.cfg.CircuitFailureThreshold >= 0 {
		middlewares = append(middlewares, circuit.Middleware(circuit.New(circuit.Config{
			FailureThreshold: f.cfg.CircuitFailureThreshold,
			Timeout:          time.Duration(f.cfg.CircuitCooldownSeconds) * time.Second,
		})))
	}
	middlewares = append(middlewares,
		timeout.Middleware(time.Duration(f.cfg.TimeoutSeconds)*time.Second),
		logging.EmptyResponseMiddleware(f.logger),
	)
	return llm.Chain(base, middlewares...)
}

func (f *Factory) createProviderClient(ctx context.Context, provider string) (llm.LLMClient, error) {
	llmCfg := llm.LLMConfig{ModelName: f.cfg.Model, BaseURL: f.cfg.BaseURL}

	if provider == config.ProviderOllama {
		if llmCfg.BaseURL == "" {
			if host, err := config.GetAPIKey(provider); err == nil {
				llmCfg.BaseURL = host
			}
		}
		f.logger.Info("Using Ollama model %s at %s", llmCfg.ModelName, llmCfg.BaseURL)
		return ollama.NewOllamaClient(llmCfg), nil
	}

	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("no credentials for provider %s: %w", provider, err)
	}
	llmCfg.APIKey = apiKey
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}

	f.logger.Info("Using %s model %s", provider, llmCfg.ModelName)
	switch provider {
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClient(llmCfg), nil
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClient(llmCfg), nil
	case config.ProviderGoogle:
		return google.NewGeminiClient(llmCfg), nil
	case config.ProviderEino:
		return eino.NewClient(ctx, llmCfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
