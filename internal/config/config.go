package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `validate:"required"`

	// Auth for the HTTP API.
	APIKey string

	// Translation backend. An empty endpoint selects the public one.
	TranslateEndpoint string

	// Worker pool (server mode).
	WorkerCount  int           `validate:"min=1"`
	MaxQueueSize int           `validate:"min=1"`
	RunTTL       time.Duration `validate:"min=1m"`

	// Run defaults; individual runs may override.
	OutputDir        string        `validate:"required"`
	DefaultDelay     time.Duration `validate:"min=0"`
	DefaultChunkSize int           `validate:"min=1"`
	DefaultSource    string        `validate:"required"`
	DefaultTarget    string        `validate:"required"`
	FetchRetries     int           `validate:"min=0"`
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("NOVELBIND_API_KEY"),

		TranslateEndpoint: os.Getenv("TRANSLATE_ENDPOINT"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),
		RunTTL:       envDuration("RUN_TTL", 24*time.Hour),

		OutputDir:        envOr("OUTPUT_DIR", "output"),
		DefaultDelay:     envDuration("PAGE_DELAY", 300*time.Millisecond),
		DefaultChunkSize: envInt("MAX_CHUNK_SIZE", 4800),
		DefaultSource:    envOr("SOURCE_LANG", "auto"),
		DefaultTarget:    envOr("TARGET_LANG", "en"),
		FetchRetries:     envInt("FETCH_RETRIES", 0),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 4800
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 0
	}

	return cfg
}

// Validate checks server-mode requirements. The CLI does not need an API key
// and skips this.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("NOVELBIND_API_KEY is required")
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
