// Package config loads server settings from the environment, with a .env
// file honored in development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/songdle/songdle-backend/internal/lobby"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	Addr    string
	BaseURL string

	// StoreBackend selects where the shared tree lives: memory (default),
	// file (memory + blob persistence), or postgres.
	StoreBackend string
	BlobDir      string
	PostgresDSN  string

	StaleAfter   time.Duration
	ReapInterval time.Duration

	YouTubeAPIKey string
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Addr:         getenv("SONGDLE_ADDR", ":8080"),
		BaseURL:      getenv("SONGDLE_BASE_URL", "http://localhost:8080"),
		StoreBackend: getenv("SONGDLE_STORE", BackendMemory),
		BlobDir:      os.Getenv("SONGDLE_BLOB_DIR"),
		PostgresDSN:  os.Getenv("SONGDLE_POSTGRES_DSN"),
		StaleAfter:   lobby.DefaultStaleAfter,
		ReapInterval: 15 * time.Minute,

		YouTubeAPIKey: os.Getenv("SONGDLE_YOUTUBE_API_KEY"),
	}

	var err error
	if cfg.StaleAfter, err = getduration("SONGDLE_STALE_AFTER", cfg.StaleAfter); err != nil {
		return Config{}, err
	}
	if cfg.ReapInterval, err = getduration("SONGDLE_REAP_INTERVAL", cfg.ReapInterval); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.BlobDir == "" {
			return fmt.Errorf("SONGDLE_BLOB_DIR is required with SONGDLE_STORE=file")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("SONGDLE_POSTGRES_DSN is required with SONGDLE_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown SONGDLE_STORE %q", c.StoreBackend)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("SONGDLE_STALE_AFTER must be positive")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("SONGDLE_REAP_INTERVAL must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
