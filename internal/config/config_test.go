package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/dispatch")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local/api/")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 7095, cfg.HTTP.Port)
	assert.Equal(t, "http://backend.local/api", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.AI.PollInterval)
	assert.Equal(t, 120*time.Second, cfg.Backend.AITimeout)
	assert.Equal(t, 30.0, cfg.Dispatch.DefaultTargetWeight)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.ServiceBus.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("AI_POLL_INTERVAL", "10s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.local, http://b.local,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 10*time.Second, cfg.AI.PollInterval)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadRequiresBackend(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/dispatch")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("BACKEND_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_BASE_URL")
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList("  "))
	assert.Equal(t, []string{"a", "b"}, parseList("a,,b "))
}
