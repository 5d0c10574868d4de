package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"clarifier/pkg/clarify"
	"clarifier/pkg/config"
	"clarifier/pkg/generation"
	genmetrics "clarifier/pkg/generation/middleware/metrics"
	"clarifier/pkg/logx"
	"clarifier/pkg/metrics"
	"clarifier/pkg/templates"
)

// setupProject loads config, configures logging and decrypts secrets.
// The returned cleanup closes the log file.
func setupProject(projectDir string, tee bool) (config.Config, func(), error) {
	noop := func() {}

	if err := config.LoadConfig(projectDir); err != nil {
		return config.Config{}, noop, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return config.Config{}, noop, err
	}

	logDir := cfg.Debug.LogDir
	if logDir == "" {
		logDir = filepath.Join(projectDir, config.ProjectConfigDir, "logs")
	}
	if err := logx.InitializeLogFile(logDir, tee); err != nil {
		return config.Config{}, noop, fmt.Errorf("failed to initialize log file: %w", err)
	}
	cleanup := func() {
		if err := logx.CloseLogFile(); err != nil {
			logx.Warnf("failed to close log file: %v", err)
		}
	}

	if cfg.Debug.Enabled {
		logx.SetDebug(true, cfg.Debug.Domains)
	}

	if err := handleSecretsDecryption(projectDir); err != nil {
		cleanup()
		return config.Config{}, noop, logx.Wrap(err, "failed to handle secrets")
	}
	return cfg, cleanup, nil
}

// handleSecretsDecryption loads the secrets file into memory when one exists.
func handleSecretsDecryption(projectDir string) error {
	if !config.SecretsFileExists(projectDir) {
		return nil
	}
	password, err := readPassword("Enter clarifier password: ")
	if err != nil {
		return err
	}
	return config.LoadSecretsFile(projectDir, password)
}

// readPassword returns CLARIFIER_PASSWORD or prompts for it on the terminal.
func readPassword(prompt string) (string, error) {
	if pw := os.Getenv(config.EnvPassword); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", logx.Errorf("no terminal for password prompt: set %s", config.EnvPassword)
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(pw) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(pw), nil
}

// buildMachine assembles generation, prompts and metrics around store.
// A nil registerer disables metrics.
func buildMachine(ctx context.Context, cfg *config.Config, store clarify.Store, reg prometheus.Registerer) (*clarify.Machine, error) {
	var (
		genRecorder genmetrics.Recorder = genmetrics.Nop()
		recorder                        = metrics.Nop()
	)
	if reg != nil {
		genRecorder = genmetrics.NewPrometheusRecorder(reg)
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	llmClient, err := generation.NewFactory(cfg.Generation, genRecorder).CreateLLMClient(ctx)
	if err != nil {
		return nil, logx.Wrap(err, "failed to create generation client")
	}
	return newMachine(cfg, store, generation.NewClient(llmClient), recorder)
}

func newMachine(cfg *config.Config, store clarify.Store, gen clarify.Generator, recorder metrics.Recorder) (*clarify.Machine, error) {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	c := cfg.Clarification
	synth := clarify.NewQuestionSynthesizer(gen, renderer,
		clarify.WithQuestionSampling(c.QuestionTemperature, c.QuestionMaxTokens),
		clarify.WithMaxQuestions(c.MaxQuestions),
		clarify.WithSynthesizerRecorder(recorder))
	readiness := clarify.NewReadinessEvaluator(gen, renderer,
		clarify.WithReadinessSampling(c.ReadinessTemperature, c.ReadinessMaxTokens),
		clarify.WithAnswerThresholds(c.MinAnswersForReadiness, c.FallbackReadyAnswers),
		clarify.WithReadinessRecorder(recorder))

	return clarify.NewMachine(store, synth, readiness,
		clarify.WithRecorder(recorder),
		clarify.WithExcerptLimit(c.ExcerptLimit)), nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
}
