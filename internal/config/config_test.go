package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TZ", "Europe/Rome")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ENV", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("GAUGE_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, time.Minute, cfg.GaugeInterval)
	assert.Equal(t, "Europe/Rome", cfg.Location.String())
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE", "mongo")
	t.Setenv("DATABASE_URL", "postgres://x")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadGaugeInterval(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("GAUGE_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GAUGE_INTERVAL")
}
