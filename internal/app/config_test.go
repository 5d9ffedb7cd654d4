package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("APP_ENV", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.StoreBackend)
	require.Equal(t, "freightData", cfg.StoreKey)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 30*time.Second, cfg.AppRequestTimeout)
	require.Equal(t, "US", cfg.DefaultPhoneRegion)
	require.Equal(t, time.Minute, cfg.RateRefreshInterval)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "STORE_BACKEND")

	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("RATE_REFRESH_INTERVAL", "-1s")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "RATE_REFRESH_INTERVAL")

	t.Setenv("RATE_REFRESH_INTERVAL", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_TOKEN_HASH", "")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "API_TOKEN_HASH")

	t.Setenv("API_TOKEN_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "test"}, &buf).Info("hello")
	require.Contains(t, buf.String(), `"env":"test"`)

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty", AppEnv: "test"}, &buf).Info("hello")
	require.Contains(t, buf.String(), "env=test")
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	require.True(t, RefreshTestMode())
	require.True(t, InTestMode())
	t.Setenv(testModeEnv, "")
	require.False(t, RefreshTestMode())
}
