package config

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every server variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "MIGRATE", "REDIS_ADDR", "REDIS_DB",
		"REDIS_CHANNEL_PREFIX", "LOG_LEVEL", "FINISH_DELAY", "ROUND_RETENTION"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.Migrate)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "cardbbang", cfg.RedisChannelPrefix)
	assert.Equal(t, 3*time.Second, cfg.FinishDelay)
	assert.Equal(t, 0, cfg.RoundRetention)
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://localhost/cardbbang")
	t.Setenv("MIGRATE", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_CHANNEL_PREFIX", "test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FINISH_DELAY", "500ms")
	t.Setenv("ROUND_RETENTION", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres://localhost/cardbbang", cfg.DatabaseURL)
	assert.False(t, cfg.Migrate)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "test", cfg.RedisChannelPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.FinishDelay)
	assert.Equal(t, 10, cfg.RoundRetention)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	cfg := Config{Port: 0, RedisDB: -1, FinishDelay: -time.Second, RoundRetention: -3, LogLevel: "loud"}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"PORT", "REDIS_DB", "FINISH_DELAY", "ROUND_RETENTION", "LOG_LEVEL"} {
		assert.Contains(t, err.Error(), want)
	}

	ok := Config{Port: 8080, LogLevel: "warn"}
	assert.NoError(t, ok.Validate())
}
