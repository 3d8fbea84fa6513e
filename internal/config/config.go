// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Process-level knobs live here (ports, endpoints, credentials, timeouts).
// Per-agent and document-scoped settings (retry bound, backup flag, model
// id) live in the registry document itself — see internal/model.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Registry document and execution history paths.
	RegistryPath  string
	HistoryDB     string // empty disables history persistence
	WatchRegistry bool   // reload the registry document on file change

	// Completion provider settings.
	Provider         string // "anthropic", "ollama", or "auto"
	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicVersion string
	OllamaURL        string
	RetryBaseDelay   time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string // empty falls back to the registry's settings.log_level
}

// Load reads configuration from environment variables with sensible defaults.
// All malformed variables are reported together rather than one at a time.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Port:             collect[int](&errs)(envInt("SHIKI_PORT", 8080)),
		ReadTimeout:      collect[time.Duration](&errs)(envDuration("SHIKI_READ_TIMEOUT", 30*time.Second)),
		WriteTimeout:     collect[time.Duration](&errs)(envDuration("SHIKI_WRITE_TIMEOUT", 5*time.Minute)),
		RegistryPath:     envStr("SHIKI_REGISTRY_PATH", "agents.json"),
		HistoryDB:        envStr("SHIKI_HISTORY_DB", "shiki_history.db"),
		WatchRegistry:    collect[bool](&errs)(envBool("SHIKI_WATCH_REGISTRY", false)),
		Provider:         envStr("SHIKI_PROVIDER", "auto"),
		AnthropicAPIKey:  envStr("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: envStr("SHIKI_ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicVersion: envStr("SHIKI_ANTHROPIC_VERSION", "2023-06-01"),
		OllamaURL:        envStr("OLLAMA_URL", "http://localhost:11434"),
		RetryBaseDelay:   collect[time.Duration](&errs)(envDuration("SHIKI_RETRY_BASE_DELAY", time.Second)),
		OTELEndpoint:     envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     collect[bool](&errs)(envBool("OTEL_EXPORTER_OTLP_INSECURE", false)),
		ServiceName:      envStr("OTEL_SERVICE_NAME", "shiki"),
		LogLevel:         envStr("SHIKI_LOG_LEVEL", ""),
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.RegistryPath == "" {
		return fmt.Errorf("config: SHIKI_REGISTRY_PATH is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: SHIKI_PORT must be in 1-65535, got %d", c.Port)
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("config: SHIKI_RETRY_BASE_DELAY must be positive")
	}
	switch c.Provider {
	case "anthropic", "ollama", "auto":
	default:
		return fmt.Errorf("config: SHIKI_PROVIDER must be anthropic, ollama, or auto, got %q", c.Provider)
	}
	return nil
}

// collect accumulates env parse errors so Load can report them all at once.
func collect[T any](errs *[]error) func(T, error) T {
	return func(v T, err error) T {
		if err != nil {
			*errs = append(*errs, err)
		}
		return v
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
