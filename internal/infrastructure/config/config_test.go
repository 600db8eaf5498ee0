package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"ADMINSYNC_APP_NAME":           os.Getenv("ADMINSYNC_APP_NAME"),
		"ADMINSYNC_APP_ENV":            os.Getenv("ADMINSYNC_APP_ENV"),
		"ADMINSYNC_RELAY_PORT":         os.Getenv("ADMINSYNC_RELAY_PORT"),
		"ADMINSYNC_RELAY_MAX_SESSIONS": os.Getenv("ADMINSYNC_RELAY_MAX_SESSIONS"),
		"ADMINSYNC_REDIS_ENABLED":      os.Getenv("ADMINSYNC_REDIS_ENABLED"),
		"ADMINSYNC_REDIS_HOST":         os.Getenv("ADMINSYNC_REDIS_HOST"),
		"ADMINSYNC_REDIS_PORT":         os.Getenv("ADMINSYNC_REDIS_PORT"),
		"ADMINSYNC_AUTH_SECRET":        os.Getenv("ADMINSYNC_AUTH_SECRET"),
		"ADMINSYNC_CLIENT_BASE_URL":    os.Getenv("ADMINSYNC_CLIENT_BASE_URL"),
		"ADMINSYNC_CLIENT_PAGE_SIZE":   os.Getenv("ADMINSYNC_CLIENT_PAGE_SIZE"),
		"ADMINSYNC_CLIENT_TIMEOUT":     os.Getenv("ADMINSYNC_CLIENT_TIMEOUT"),
		"ADMINSYNC_LOG_LEVEL":          os.Getenv("ADMINSYNC_LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "adminsync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "5001", cfg.Relay.Port)
		assert.Equal(t, 256, cfg.Relay.MaxSessions)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost", cfg.Redis.Host)
		assert.Equal(t, 6379, cfg.Redis.Port)
		assert.Equal(t, "adminsync:relay", cfg.Redis.Channel)
		assert.Equal(t, "http://localhost:5000/api", cfg.Client.BaseURL)
		assert.Equal(t, "ws://localhost:5001/ws", cfg.Client.RelayURL)
		assert.Equal(t, 10, cfg.Client.PageSize)
		assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)
	})

	t.Run("loads values from environment variables with ADMINSYNC prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("ADMINSYNC_APP_NAME", "test-app")
		os.Setenv("ADMINSYNC_RELAY_PORT", "9000")
		os.Setenv("ADMINSYNC_RELAY_MAX_SESSIONS", "8")
		os.Setenv("ADMINSYNC_REDIS_ENABLED", "true")
		os.Setenv("ADMINSYNC_REDIS_HOST", "redis.local")
		os.Setenv("ADMINSYNC_REDIS_PORT", "6380")
		os.Setenv("ADMINSYNC_CLIENT_BASE_URL", "https://shop.example.com/api")
		os.Setenv("ADMINSYNC_CLIENT_PAGE_SIZE", "25")
		os.Setenv("ADMINSYNC_LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.Relay.Port)
		assert.Equal(t, 8, cfg.Relay.MaxSessions)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "redis.local", cfg.Redis.Host)
		assert.Equal(t, 6380, cfg.Redis.Port)
		assert.Equal(t, "https://shop.example.com/api", cfg.Client.BaseURL)
		assert.Equal(t, 25, cfg.Client.PageSize)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("zero page size uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("ADMINSYNC_CLIENT_PAGE_SIZE", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Client.PageSize)
	})

	t.Run("negative max sessions rejected", func(t *testing.T) {
		clearEnv()
		os.Setenv("ADMINSYNC_RELAY_MAX_SESSIONS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_sessions")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"ADMINSYNC_APP_ENV":     os.Getenv("ADMINSYNC_APP_ENV"),
		"ADMINSYNC_AUTH_SECRET": os.Getenv("ADMINSYNC_AUTH_SECRET"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("production requires auth secret", func(t *testing.T) {
		os.Setenv("ADMINSYNC_APP_ENV", "production")
		os.Unsetenv("ADMINSYNC_AUTH_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.secret is required")
	})

	t.Run("production rejects short auth secret", func(t *testing.T) {
		os.Setenv("ADMINSYNC_APP_ENV", "production")
		os.Setenv("ADMINSYNC_AUTH_SECRET", "too-short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("production accepts long auth secret", func(t *testing.T) {
		os.Setenv("ADMINSYNC_APP_ENV", "production")
		os.Setenv("ADMINSYNC_AUTH_SECRET", "0123456789abcdef0123456789abcdef")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.Log.Format)
	})
}

func TestRelayAddr(t *testing.T) {
	r := RelayConfig{Port: "5001"}
	assert.Equal(t, ":5001", r.Addr())
}
