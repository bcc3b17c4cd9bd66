package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, int64(10), cfg.UpgradeRateCapacity)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://vcall.example.com, https://app.example.com")
	t.Setenv("UPGRADE_RATE_CAPACITY", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"https://vcall.example.com", "https://app.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, int64(25), cfg.UpgradeRateCapacity)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("UPGRADE_RATE_CAPACITY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(10), cfg.UpgradeRateCapacity)
}
