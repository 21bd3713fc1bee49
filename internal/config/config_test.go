package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("s", 32)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "LOG_LEVEL", "JWT_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD",
		"EXTENSION_ID", "REFERRAL_BASE_URL", "STORAGE_DRIVER", "SQLITE_PATH", "DATABASE_URL",
		"REDIS_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ALERT_CHAT_ID", "SAVE_DEBOUNCE",
		"ACK_TIMEOUT", "SHUTDOWN_TIMEOUT", "INBOUND_RATE", "INBOUND_BURST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "buzzchat.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 500*time.Millisecond, cfg.SaveDebounce)
	assert.Equal(t, 5*time.Second, cfg.AckTimeout)
	assert.Equal(t, 20.0, cfg.InboundRate)
	assert.Equal(t, 40, cfg.InboundBurst)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SAVE_DEBOUNCE", "0")
	t.Setenv("INBOUND_RATE", "2.5")
	t.Setenv("EXTENSION_ID", "abcdefghijklmnopabcdefghijklmnop")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, time.Duration(0), cfg.SaveDebounce)
	assert.Equal(t, 2.5, cfg.InboundRate)
	assert.Equal(t, "abcdefghijklmnopabcdefghijklmnop", cfg.ExtensionID)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ACK_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "ACK_TIMEOUT")
}

func TestValidate(t *testing.T) {
	valid := Config{
		JWTSecret:    testSecret,
		Storage:      StorageConfig{Driver: "memory"},
		InboundRate:  1,
		InboundBurst: 1,
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"short secret":      func(c *Config) { c.JWTSecret = "short" },
		"postgres no url":   func(c *Config) { c.Storage.Driver = "postgres" },
		"redis no url":      func(c *Config) { c.Storage.Driver = "redis" },
		"unknown driver":    func(c *Config) { c.Storage.Driver = "mongo" },
		"negative debounce": func(c *Config) { c.SaveDebounce = -time.Second },
		"zero rate":         func(c *Config) { c.InboundRate = 0 },
		"admin half set":    func(c *Config) { c.AdminUsername = "admin" },
	}
	for name, mutate := range cases {
		c := valid
		mutate(&c)
		assert.Error(t, c.Validate(), name)
	}

	withAdmin := valid
	withAdmin.AdminUsername, withAdmin.AdminPassword = "admin", "secret123"
	assert.NoError(t, withAdmin.Validate())
}
