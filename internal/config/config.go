// Package config загружает конфигурацию сервера из окружения.
// Секреты (токен бота, JWT secret, master key) дальше этого пакета
// в явном виде не путешествуют и никогда не логируются.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the server
type Config struct {
	// HTTP
	Addr string `env:"SERVER_ADDR" envDefault:":8080"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"tradegram.db"`

	// Telegram init data verification
	BotToken       string        `env:"TELEGRAM_BOT_TOKEN,required"`
	InitDataMaxAge time.Duration `env:"INIT_DATA_MAX_AGE" envDefault:"5m"`

	// Session tokens
	JWTSecret       string        `env:"JWT_SECRET,required"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// Encryption of exchange credentials at rest
	CredentialsMasterKey string `env:"CREDENTIALS_MASTER_KEY,required"`
	CredentialsKeySalt   string `env:"CREDENTIALS_KEY_SALT,required"` // base64, 32 bytes

	// Replay guard; пустой путь отключает защиту
	ReplayDBPath string `env:"REPLAY_DB_PATH"`

	// Rate limiting auth эндпоинтов
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"30"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables.
// Файл .env подхватывается, если присутствует.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.InitDataMaxAge <= 0 {
		return nil, fmt.Errorf("INIT_DATA_MAX_AGE must be positive")
	}

	return cfg, nil
}

// SlogLevel переводит текстовый уровень в slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
