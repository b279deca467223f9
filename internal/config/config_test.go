package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 2*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 15*time.Minute, cfg.ReapInterval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SONGDLE_ADDR", ":9090")
	t.Setenv("SONGDLE_STORE", "file")
	t.Setenv("SONGDLE_BLOB_DIR", t.TempDir())
	t.Setenv("SONGDLE_STALE_AFTER", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.StaleAfter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory backend", func(c *Config) {}, false},
		{"file without dir", func(c *Config) { c.StoreBackend = BackendFile }, true},
		{"postgres without dsn", func(c *Config) { c.StoreBackend = BackendPostgres }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, true},
		{"zero stale window", func(c *Config) { c.StaleAfter = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				StoreBackend: BackendMemory,
				StaleAfter:   time.Hour,
				ReapInterval: time.Minute,
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
