// Package config loads the server configuration from the environment. A
// .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Env is "development" or "production"; it picks the log encoder
	Env      string
	HTTPAddr string
	LogLevel string

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	// ExtensionID is the browser extension allowed to talk to /ws
	ExtensionID     string
	ReferralBaseURL string

	Storage StorageConfig
	Alerts  AlertConfig

	// SaveDebounce delays settings writes so bursts of edits become one save
	SaveDebounce time.Duration
	// InboundRate and InboundBurst bound content script messages per namespace
	InboundRate  float64
	InboundBurst int
	AckTimeout   time.Duration

	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Driver      string // memory, sqlite, postgres or redis
	SQLitePath  string
	DatabaseURL string
	RedisURL    string
}

type AlertConfig struct {
	TelegramToken string
	ChatID        string
}

// Load reads .env (if any) and the environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:             getEnv("APP_ENV", "production"),
		HTTPAddr:        getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		ExtensionID:     os.Getenv("EXTENSION_ID"),
		ReferralBaseURL: os.Getenv("REFERRAL_BASE_URL"),
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", "sqlite")),
			SQLitePath:  getEnv("SQLITE_PATH", "buzzchat.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			RedisURL:    os.Getenv("REDIS_URL"),
		},
		Alerts: AlertConfig{
			TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:        os.Getenv("TELEGRAM_ALERT_CHAT_ID"),
		},
	}

	var err error
	if cfg.SaveDebounce, err = getDuration("SAVE_DEBOUNCE", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.AckTimeout, err = getDuration("ACK_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.InboundRate, err = getFloat("INBOUND_RATE", 20); err != nil {
		return Config{}, err
	}
	if cfg.InboundBurst, err = getInt("INBOUND_BURST", 40); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with
func (c Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.SaveDebounce < 0 {
		return errors.New("SAVE_DEBOUNCE must not be negative")
	}
	if c.InboundRate <= 0 || c.InboundBurst <= 0 {
		return errors.New("INBOUND_RATE and INBOUND_BURST must be positive")
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
