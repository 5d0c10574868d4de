// Package config loads and validates clarifier configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"clarifier/pkg/logx"
)

// ProjectConfigDir is the per-project directory holding config, secrets, logs and the database.
const ProjectConfigDir = ".clarifier"

// Config file names, checked in order.
const (
	ConfigFileJSON = "config.json"
	ConfigFileYAML = "config.yaml"
)

// Environment overrides.
const (
	EnvHost     = "CLARIFIER_HOST"
	EnvPort     = "CLARIFIER_PORT"
	EnvDBPath   = "CLARIFIER_DB_PATH"
	EnvModel    = "CLARIFIER_MODEL"
	EnvPassword = "CLARIFIER_PASSWORD"
)

// Config is the complete clarifier configuration.
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Database      DatabaseConfig      `json:"database" yaml:"database"`
	Generation    GenerationConfig    `json:"generation" yaml:"generation"`
	Clarification ClarificationConfig `json:"clarification" yaml:"clarification"`
	Debug         DebugConfig         `json:"debug" yaml:"debug"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig locates the sqlite file. Relative paths resolve against the project directory.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// GenerationConfig selects the text-generation backend.
type GenerationConfig struct {
	Model          string `json:"model" yaml:"model"`
	Provider       string `json:"provider,omitempty" yaml:"provider,omitempty"` // inferred from Model when empty
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	// Consecutive failures before calls fail fast; 0 takes the default, -1 disables.
	CircuitFailureThreshold int `json:"circuit_failure_threshold" yaml:"circuit_failure_threshold"`
	CircuitCooldownSeconds  int `json:"circuit_cooldown_seconds" yaml:"circuit_cooldown_seconds"`
}

// ClarificationConfig holds the question and readiness tuning knobs.
type ClarificationConfig struct {
	ExcerptLimit           int     `json:"excerpt_limit" yaml:"excerpt_limit"`
	MaxQuestions           int     `json:"max_questions" yaml:"max_questions"`
	QuestionTemperature    float32 `json:"question_temperature" yaml:"question_temperature"`
	QuestionMaxTokens      int     `json:"question_max_tokens" yaml:"question_max_tokens"`
	ReadinessTemperature   float32 `json:"readiness_temperature" yaml:"readiness_temperature"`
	ReadinessMaxTokens     int     `json:"readiness_max_tokens" yaml:"readiness_max_tokens"`
	MinAnswersForReadiness int     `json:"min_answers_for_readiness" yaml:"min_answers_for_readiness"`
	FallbackReadyAnswers   int     `json:"fallback_ready_answers" yaml:"fallback_ready_answers"`
}

// DebugConfig mirrors the logx debug switches.
type DebugConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty"`
	LogDir  string   `json:"log_dir,omitempty" yaml:"log_dir,omitempty"`
}

// Defaults. The clarification token budgets, max_questions and
// min_answers_for_readiness defaults are also the limits validateConfig enforces.
const (
	DefaultHost                   = "0.0.0.0"
	DefaultPort                   = 8000
	DefaultShutdownTimeoutSeconds = 5
	DefaultDBFile                 = "clarifier.db"
	DefaultModel                  = ModelGPT4
	DefaultTimeoutSeconds         = 20
	DefaultCircuitThreshold       = 5
	DefaultCircuitCooldown        = 30
	DefaultExcerptLimit           = 1000
	DefaultMaxQuestions           = 4
	DefaultQuestionTemperature    = 0.7
	DefaultQuestionMaxTokens      = 300
	DefaultReadinessTemperature   = 0.3
	DefaultReadinessMaxTokens     = 10
	DefaultMinAnswers             = 2
	DefaultFallbackReadyAnswers   = 3
)

//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config     *Config
	projectDir string
	logger     *logx.Logger
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// LogInfo logs through the config logger.
func LogInfo(format string, args ...any) {
	getLogger().Info(format, args...)
}

// LoadConfig loads <projectDir>/.clarifier/config.json (or config.yaml) into the
// global singleton.
//
// Missing file: a default config is created and saved as JSON.
// Existing file: it is parsed, defaults are applied, and the result is validated.
// Unparseable file: an error is returned and the file is left untouched.
// Environment overrides are applied last and never written back.
func LoadConfig(inputProjectDir string) error {
	mu.Lock()
	defer mu.Unlock()

	projectDir = inputProjectDir
	configDir := filepath.Join(projectDir, ProjectConfigDir)

	path, found := findConfigFile(configDir)
	var loaded *Config
	if !found {
		getLogger().Info("Config file not found, creating defaults at %s", filepath.Join(configDir, ConfigFileJSON))
		loaded = createDefaultConfig()
		if err := SaveConfig(loaded, projectDir); err != nil {
			return fmt.Errorf("failed to save initial config: %w", err)
		}
	} else {
		getLogger().Info("Loading config from %s", path)
		var err error
		loaded, err = loadConfigFromFile(path)
		if err != nil {
			return fmt.Errorf("config file exists but cannot be parsed: %w", err)
		}
		applyDefaults(loaded)
	}

	applyEnvOverrides(loaded)
	if err := validateConfig(loaded); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	config = loaded
	return nil
}

// GetConfig returns a copy of the loaded config.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not initialized - call LoadConfig first")
	}
	cfg := *config
	cfg.Debug.Domains = append([]string(nil), config.Debug.Domains...)
	return cfg, nil
}

// SetConfigForTesting replaces the global config. Pass nil to reset.
func SetConfigForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	config = cfg
	if cfg == nil {
		projectDir = ""
	}
}

// GetProjectDir returns the directory passed to LoadConfig.
func GetProjectDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return projectDir
}

// DatabasePath resolves the configured database path against the project directory.
func (c *Config) DatabasePath(projectDir string) string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(projectDir, c.Database.Path)
}

func findConfigFile(configDir string) (string, bool) {
	for _, name := range []string{ConfigFileJSON, ConfigFileYAML, "config.yml"} {
		path := filepath.Join(configDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// loadConfigFromFile parses JSON or YAML depending on the extension.
func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML %s: %w", configPath, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON %s: %w", configPath, err)
		}
	}
	return &cfg, nil
}

// SaveConfig writes cfg to <projectDir>/.clarifier/config.json.
func SaveConfig(cfg *Config, projectDir string) error {
	configPath := filepath.Join(projectDir, ProjectConfigDir, ConfigFileJSON)
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func createDefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = DefaultShutdownTimeoutSeconds
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(ProjectConfigDir, DefaultDBFile)
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = DefaultModel
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Generation.CircuitFailureThreshold == 0 {
		cfg.Generation.CircuitFailureThreshold = DefaultCircuitThreshold
	}
	if cfg.Generation.CircuitCooldownSeconds == 0 {
		cfg.Generation.CircuitCooldownSeconds = DefaultCircuitCooldown
	}

	c := &cfg.Clarification
	if c.ExcerptLimit == 0 {
		c.ExcerptLimit = DefaultExcerptLimit
	}
	if c.MaxQuestions == 0 {
		c.MaxQuestions = DefaultMaxQuestions
	}
	if c.QuestionTemperature == 0 {
		c.QuestionTemperature = DefaultQuestionTemperature
	}
	if c.QuestionMaxTokens == 0 {
		c.QuestionMaxTokens = DefaultQuestionMaxTokens
	}
	if c.ReadinessTemperature == 0 {
		c.ReadinessTemperature = DefaultReadinessTemperature
	}
	if c.ReadinessMaxTokens == 0 {
		c.ReadinessMaxTokens = DefaultReadinessMaxTokens
	}
	if c.MinAnswersForReadiness == 0 {
		c.MinAnswersForReadiness = DefaultMinAnswers
	}
	if c.FallbackReadyAnswers == 0 {
		c.FallbackReadyAnswers = DefaultFallbackReadyAnswers
	}
}

func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv(EnvHost); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv(EnvPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		} else {
			getLogger().Warn("Ignoring invalid %s=%q", EnvPort, port)
		}
	}
	if dbPath := os.Getenv(EnvDBPath); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if model := os.Getenv(EnvModel); model != "" {
		cfg.Generation.Model = model
		cfg.Generation.Provider = ""
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Generation.TimeoutSeconds < 0 {
		return fmt.Errorf("generation.timeout_seconds must not be negative")
	}

	provider := cfg.Generation.Provider
	if provider == "" {
		inferred, err := GetModelProvider(cfg.Generation.Model)
		if err != nil {
			return err
		}
		provider = inferred
	}
	if !IsKnownProvider(provider) {
		return fmt.Errorf("generation.provider %q is not supported", provider)
	}
	if provider == ProviderEino && cfg.Generation.BaseURL == "" {
		getLogger().Warn("Provider %s without base_url: using the default OpenAI endpoint", ProviderEino)
	}

	c := cfg.Clarification
	switch {
	case c.ExcerptLimit < 0 || c.ExcerptLimit > DefaultExcerptLimit:
		return fmt.Errorf("clarification.excerpt_limit must be within [0,%d]", DefaultExcerptLimit)
	case c.MaxQuestions < 1 || c.MaxQuestions > DefaultMaxQuestions:
		return fmt.Errorf("clarification.max_questions must be within [1,%d]", DefaultMaxQuestions)
	case c.QuestionTemperature < 0 || c.QuestionTemperature > 1:
		return fmt.Errorf("clarification.question_temperature must be within [0,1]")
	case c.ReadinessTemperature < 0 || c.ReadinessTemperature > 1:
		return fmt.Errorf("clarification.readiness_temperature must be within [0,1]")
	case c.QuestionMaxTokens <= 0 || c.QuestionMaxTokens > DefaultQuestionMaxTokens:
		return fmt.Errorf("clarification.question_max_tokens must be within (0,%d]", DefaultQuestionMaxTokens)
	case c.ReadinessMaxTokens <= 0 || c.ReadinessMaxTokens > DefaultReadinessMaxTokens:
		return fmt.Errorf("clarification.readiness_max_tokens must be within (0,%d]", DefaultReadinessMaxTokens)
	case c.MinAnswersForReadiness < DefaultMinAnswers:
		return fmt.Errorf("clarification.min_answers_for_readiness must be at least %d", DefaultMinAnswers)
	case c.FallbackReadyAnswers < c.MinAnswersForReadiness:
		return fmt.Errorf("clarification.fallback_ready_answers must not be below min_answers_for_readiness")
	}
	return nil
}

// ResolvedProvider returns the explicit provider or the one inferred from the model name.
func (c *GenerationConfig) ResolvedProvider() (string, error) {
	if c.Provider != "" {
		return c.Provider, nil
	}
	return GetModelProvider(c.Model)
}
