package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/listings")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
	assert.Equal(t, "artifacts", cfg.ArtifactDir)
	assert.Equal(t, 120*time.Second, cfg.PublishTimeout())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "placeholder") // registers restore
	os.Unsetenv("DATABASE_URL")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateProductionSecrets(t *testing.T) {
	cfg := &Config{SessionSecret: "secret"}
	assert.Error(t, cfg.Validate(true), "weak secret must be rejected in production")

	cfg.SessionSecret = "short"
	assert.Error(t, cfg.Validate(true))

	cfg.SessionSecret = "a-long-random-secret-value-0123456789abcdef"
	assert.NoError(t, cfg.Validate(true))
}

func TestValidateDevelopmentIsLenient(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate(false))
}
