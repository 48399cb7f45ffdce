// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config is the server configuration, read from the environment.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// DatabaseURL selects the Postgres store. Empty keeps everything in memory.
	DatabaseURL string `env:"DATABASE_URL"`
	Migrate     bool   `env:"MIGRATE" envDefault:"true"`

	// RedisAddr selects the Redis event bus. Empty uses the in-process bus.
	RedisAddr          string `env:"REDIS_ADDR"`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"cardbbang"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	FinishDelay    time.Duration `env:"FINISH_DELAY" envDefault:"3s"`
	RoundRetention int           `env:"ROUND_RETENTION" envDefault:"0"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the server configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must not be negative: %d", c.RedisDB))
	}
	if c.FinishDelay < 0 {
		errs = append(errs, fmt.Errorf("FINISH_DELAY must not be negative: %s", c.FinishDelay))
	}
	if c.RoundRetention < 0 {
		errs = append(errs, fmt.Errorf("ROUND_RETENTION must not be negative: %d", c.RoundRetention))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
