package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8091" {
		t.Errorf("expected default port 8091, got %q", cfg.Port)
	}
	if cfg.DefaultChunkSize != 4800 {
		t.Errorf("expected default chunk size 4800, got %d", cfg.DefaultChunkSize)
	}
	if cfg.DefaultDelay != 300*time.Millisecond {
		t.Errorf("expected default delay 300ms, got %v", cfg.DefaultDelay)
	}
	if cfg.DefaultSource != "auto" || cfg.DefaultTarget != "en" {
		t.Errorf("expected auto->en defaults, got %s->%s", cfg.DefaultSource, cfg.DefaultTarget)
	}
	if cfg.FetchRetries != 0 {
		t.Errorf("expected skip-without-retry default, got %d retries", cfg.FetchRetries)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAX_CHUNK_SIZE", "1000")
	t.Setenv("PAGE_DELAY", "1s")
	t.Setenv("TARGET_LANG", "de")

	cfg := Load()
	if cfg.DefaultChunkSize != 1000 {
		t.Errorf("expected chunk size 1000, got %d", cfg.DefaultChunkSize)
	}
	if cfg.DefaultDelay != time.Second {
		t.Errorf("expected delay 1s, got %v", cfg.DefaultDelay)
	}
	if cfg.DefaultTarget != "de" {
		t.Errorf("expected target de, got %q", cfg.DefaultTarget)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("MAX_CHUNK_SIZE", "not-a-number")
	t.Setenv("PAGE_DELAY", "soon")

	cfg := Load()
	if cfg.DefaultChunkSize != 4800 {
		t.Errorf("expected fallback chunk size, got %d", cfg.DefaultChunkSize)
	}
	if cfg.DefaultDelay != 300*time.Millisecond {
		t.Errorf("expected fallback delay, got %v", cfg.DefaultDelay)
	}
}

func TestValidate_RequiresAPIKey(t *testing.T) {
	cfg := Load()
	cfg.APIKey = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !strings.Contains(err.Error(), "NOVELBIND_API_KEY") {
		t.Errorf("expected key name in error, got %v", err)
	}
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	cfg := Load()
	cfg.APIKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
