package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendDynamo = "dynamo"
	BackendRedis  = "redis"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"production"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	BotToken      string `env:"BOT_TOKEN"`
	TargetChatID  int64  `env:"TARGET_CHAT_ID"`
	AdminChatID   int64  `env:"ADMIN_CHAT_ID"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	ModerationURL   string  `env:"MODERATION_URL"`
	ModerationToken string  `env:"MODERATION_TOKEN"`
	ModerationRate  float64 `env:"MODERATION_RATE" default:"5"`

	StoreBackend   string `env:"STORE_BACKEND" default:"dynamo"`
	DynamoEndpoint string `env:"DYNAMO_ENDPOINT"`
	AWSRegion      string `env:"AWS_REGION" default:"ru-central1"` // Yandex Cloud YDB always uses ru-central1
	AWSKeyID       string `env:"AWS_KEY_ID"`
	AWSKey         string `env:"AWS_KEY"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	MinVotes     int64         `env:"MIN_VOTES" default:"10"`
	CleanupDelay time.Duration `env:"CLEANUP_DELAY" default:"30s"`
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

type requiredVar struct {
	name  string
	value string
}

func validate(cfg *Config) error {
	required := []requiredVar{
		{"BOT_TOKEN", cfg.BotToken},
		{"MODERATION_URL", cfg.ModerationURL},
		{"MODERATION_TOKEN", cfg.ModerationToken},
		{"REDIS_URL", cfg.RedisURL},
	}
	switch cfg.StoreBackend {
	case BackendDynamo:
		required = append(required,
			requiredVar{"DYNAMO_ENDPOINT", cfg.DynamoEndpoint},
			requiredVar{"AWS_KEY_ID", cfg.AWSKeyID},
			requiredVar{"AWS_KEY", cfg.AWSKey},
		)
	case BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendDynamo, BackendRedis, cfg.StoreBackend)
	}

	for _, v := range required {
		if v.value == "" {
			return fmt.Errorf("%s is required", v.name)
		}
	}

	if cfg.TargetChatID == 0 {
		return errors.New("TARGET_CHAT_ID is required")
	}
	if cfg.AdminChatID == 0 {
		return errors.New("ADMIN_CHAT_ID is required")
	}
	if cfg.MinVotes < 1 {
		return fmt.Errorf("MIN_VOTES must be at least 1, got %d", cfg.MinVotes)
	}
	if cfg.CleanupDelay < 0 {
		return fmt.Errorf("CLEANUP_DELAY must not be negative, got %s", cfg.CleanupDelay)
	}

	if cfg.WebhookURL != "" && cfg.WebhookSecret == "" {
		return errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	if cfg.WebhookSecret != "" && !validSecretToken(cfg.WebhookSecret) {
		return errors.New("WEBHOOK_SECRET must be 1-256 characters of A-Z, a-z, 0-9, _ and -")
	}

	return nil
}

// validSecretToken applies the Bot API's charset rule for webhook secret tokens.
func validSecretToken(s string) bool {
	if len(s) > 256 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
