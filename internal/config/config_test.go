package config

import (
	"strings"
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "9090")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 9090 {
		t.Fatalf("expected 9090, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	v, err := envInt("TEST_INT_MISSING", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected fallback 7, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	v, err := envDuration("TEST_DUR", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5*time.Second {
		t.Fatalf("expected 5s, got %s", v)
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.RegistryPath != "agents.json" {
		t.Fatalf("expected default registry path agents.json, got %s", cfg.RegistryPath)
	}
	if cfg.RetryBaseDelay != time.Second {
		t.Fatalf("expected 1s retry base delay, got %s", cfg.RetryBaseDelay)
	}
}

func TestLoadReportsAllInvalidVars(t *testing.T) {
	t.Setenv("SHIKI_PORT", "abc")
	t.Setenv("SHIKI_RETRY_BASE_DELAY", "soon")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with invalid vars")
	}
	got := err.Error()
	if !strings.Contains(got, "SHIKI_PORT") {
		t.Fatalf("error should mention SHIKI_PORT, got: %s", got)
	}
	if !strings.Contains(got, "SHIKI_RETRY_BASE_DELAY") {
		t.Fatalf("error should mention SHIKI_RETRY_BASE_DELAY, got: %s", got)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	t.Setenv("SHIKI_PROVIDER", "carrier-pigeon")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to reject unknown provider")
	}
	if !strings.Contains(err.Error(), "SHIKI_PROVIDER") {
		t.Fatalf("error should mention SHIKI_PROVIDER, got: %s", err)
	}
}
