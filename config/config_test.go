package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "DATABASE_URL", "DATA_DIR", "UPLOAD_DIR", "NUM_WORKERS",
		"WORKER_POLL_INTERVAL", "SUGGESTION_LIMIT", "PROMETHEUS_ENABLED",
		"LOG_DEVELOPMENT", "PORTAL_BASE_URL", "ENTRY_SESSION_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, ".data", cfg.DataDir)
	assert.Equal(t, ".uploads", cfg.UploadDir)
	assert.Equal(t, 4, cfg.NumWorkers)
	assert.Equal(t, 5*time.Second, cfg.WorkerPollInterval)
	assert.Equal(t, 5, cfg.SuggestionLimit)
	assert.Equal(t, 30*time.Minute, cfg.EntrySessionTTL)
	assert.False(t, cfg.PrometheusEnabled)
	assert.False(t, cfg.LogDevelopment)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://fiado@localhost:5432/fiado")
	t.Setenv("NUM_WORKERS", "2")
	t.Setenv("WORKER_POLL_INTERVAL", "250ms")
	t.Setenv("SUGGESTION_LIMIT", "8")
	t.Setenv("PROMETHEUS_ENABLED", "true")
	t.Setenv("ENTRY_SESSION_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres://fiado@localhost:5432/fiado", cfg.DatabaseURL)
	assert.Equal(t, 2, cfg.NumWorkers)
	assert.Equal(t, 250*time.Millisecond, cfg.WorkerPollInterval)
	assert.Equal(t, 8, cfg.SuggestionLimit)
	assert.True(t, cfg.PrometheusEnabled)
	assert.Equal(t, 90*time.Second, cfg.EntrySessionTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"NUM_WORKERS", "many"},
		{"NUM_WORKERS", "0"},
		{"SUGGESTION_LIMIT", "-1"},
		{"WORKER_POLL_INTERVAL", "soon"},
		{"WORKER_POLL_INTERVAL", "-5s"},
		{"ENTRY_SESSION_TTL", "0s"},
		{"PROMETHEUS_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
