package configs

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENVIRONMENT", "PORT", "LOG_LEVEL", "ALLOWED_ORIGINS", "PASSWORD_HASH_COST",
	"CONNECT_RATE", "CONNECT_BURST", "DEFAULT_GROUP_NAME", "MAX_CONTENT_BYTES",
	"MAX_FILE_BYTES", "SEND_QUEUE_SIZE", "PING_INTERVAL", "DATABASE_URL",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	cfg, err := LoadConfig()

	req.NoError(err)
	req.Equal("development", cfg.Environment)
	req.True(cfg.IsDevelopment())
	req.Equal(8888, cfg.Port)
	req.Equal(DefaultGroupName, cfg.DefaultGroupName)
	req.Equal(256, cfg.SendQueueSize)
	req.Equal(int64(16*1024*1024), cfg.MaxFileBytes)
	req.Equal(time.Duration(0), cfg.PingInterval)
	req.Empty(cfg.AllowedOrigins())
}

func TestLoadConfig_Overrides(t *testing.T) {
	req := require.New(t)
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DEFAULT_GROUP_NAME", "lobby")
	t.Setenv("PING_INTERVAL", "30s")

	cfg, err := LoadConfig()

	req.NoError(err)
	req.False(cfg.IsDevelopment())
	req.Equal(9000, cfg.Port)
	req.Equal([]string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	req.Equal("lobby", cfg.DefaultGroupName)
	req.Equal(30*time.Second, cfg.PingInterval)
}

func TestLoadConfig_RejectsPrivilegedPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "80")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_ProductionNeedsOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "ALLOWED_ORIGINS")
}
