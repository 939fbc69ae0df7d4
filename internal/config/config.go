package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN          string `env:"DATABASE_DSN,required=true"`
	RedisURL             string `env:"REDIS_URL,required=true"`
	APIPort              int    `env:"API_PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
	Environment          string `env:"ENVIRONMENT,default=development"`
	NotificationsEnabled bool   `env:"NOTIFICATIONS_ENABLED,default=true"`
	MaxRetries           int    `env:"MAX_RETRIES,default=3"`
	RateLimitPerMinute   int    `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	TokenDailyCap        int    `env:"TOKEN_DAILY_CAP,default=100"`
	AppBaseURL           string `env:"APP_BASE_URL,required=true"`
	KeyRegistryURL       string `env:"KEY_REGISTRY_URL"`
	DailyReminderHour    int    `env:"DAILY_REMINDER_HOUR,default=12"`
	EveningReminderHour  int    `env:"EVENING_REMINDER_HOUR,default=20"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if c.DailyReminderHour < 0 || c.DailyReminderHour > 23 {
		return fmt.Errorf("DAILY_REMINDER_HOUR must be in [0,23], got %d", c.DailyReminderHour)
	}
	if c.EveningReminderHour < 0 || c.EveningReminderHour > 23 {
		return fmt.Errorf("EVENING_REMINDER_HOUR must be in [0,23], got %d", c.EveningReminderHour)
	}
	if c.IsProduction() && strings.TrimSpace(c.KeyRegistryURL) == "" {
		return fmt.Errorf("KEY_REGISTRY_URL is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
