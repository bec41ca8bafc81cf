package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Storage.PresignTTL)
	assert.Equal(t, "sqlite", cfg.Index.Driver)
	assert.Equal(t, 3, cfg.Detector.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Detector.BaseDelay)
	assert.Equal(t, 2, cfg.Queue.Workers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("STORAGE_BUCKET", "blueprints-test")
	t.Setenv("DETECTOR_MAX_ATTEMPTS", "5")
	t.Setenv("DETECTOR_BASE_DELAY", "250ms")

	cfg := LoadConfig()
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "blueprints-test", cfg.Storage.Bucket)
	assert.Equal(t, 5, cfg.Detector.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Detector.BaseDelay)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage:  StorageConfig{Backend: "local", SigningSecret: "secret", LocalDir: "./data"},
			Index:    IndexConfig{Driver: "sqlite", Path: "./index.db"},
			Detector: DetectorConfig{Endpoint: "http://model:8080/invocations", MaxAttempts: 3},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3"; c.Storage.Bucket = "" }},
		{"local without signing secret", func(c *Config) { c.Storage.SigningSecret = "" }},
		{"postgres without dsn", func(c *Config) { c.Index.Driver = "postgres"; c.Index.DSN = "" }},
		{"missing detector endpoint", func(c *Config) { c.Detector.Endpoint = "" }},
		{"zero attempts", func(c *Config) { c.Detector.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
