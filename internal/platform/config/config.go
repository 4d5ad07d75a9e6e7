package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	minSessionSecretLen = 32
	tokenKeyLen         = 32
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DiscordClientID     string        `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string        `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string        `env:"DISCORD_REDIRECT_URI"`
	DiscordBotToken     string        `env:"DISCORD_BOT_TOKEN"`
	DiscordAPITimeout   time.Duration `env:"DISCORD_API_TIMEOUT" default:"10s"`

	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionBackend string        `env:"SESSION_BACKEND" default:"memory"`
	SessionMaxAge  time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
	RedisURL       string        `env:"REDIS_URL"`

	// Hex-encoded 32 byte key sealing access tokens in the Redis backend.
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`

	TemplatesDir    string `env:"TEMPLATES_DIR" default:"templates"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" default:"en-US"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"DISCORD_CLIENT_ID", cfg.DiscordClientID},
		{"DISCORD_CLIENT_SECRET", cfg.DiscordClientSecret},
		{"DISCORD_REDIRECT_URI", cfg.DiscordRedirectURI},
		{"DISCORD_BOT_TOKEN", cfg.DiscordBotToken},
		{"SESSION_SECRET", cfg.SessionSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if len(cfg.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}

	switch cfg.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when SESSION_BACKEND is redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", SessionBackendMemory, SessionBackendRedis, cfg.SessionBackend)
	}

	if cfg.TokenEncryptionKey != "" {
		key, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(key) != tokenKeyLen {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(key))
		}
	}

	if cfg.SessionMaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if cfg.DiscordAPITimeout <= 0 {
		return errors.New("DISCORD_API_TIMEOUT must be positive")
	}
	if cfg.TemplatesDir == "" {
		return errors.New("TEMPLATES_DIR cannot be empty")
	}

	return nil
}
