// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Telegram
	BotToken string
	APIURL   string

	// Pacing. ThrottleDelay spaces gated calls; TransportRPS and
	// TransportBurst enable the token bucket on the HTTP transport
	// when RPS is positive.
	ThrottleDelay  time.Duration
	TransportRPS   int
	TransportBurst int

	// Long polling
	PollTimeout time.Duration

	// Operations
	MetricsAddr     string // empty disables the metrics server
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIURL:      getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.ThrottleDelay, err = getEnvDuration("THROTTLE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = getEnvDuration("POLL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.TransportRPS, err = getEnvInt("TRANSPORT_RPS", 0); err != nil {
		return nil, err
	}
	if cfg.TransportBurst, err = getEnvInt("TRANSPORT_BURST", 0); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TELEGRAM_API_URL must be an absolute URL, got %q", c.APIURL)
	}

	if c.ThrottleDelay < 0 {
		return fmt.Errorf("THROTTLE_DELAY must be non-negative")
	}

	if c.TransportRPS < 0 || c.TransportBurst < 0 {
		return fmt.Errorf("TRANSPORT_RPS and TRANSPORT_BURST must be non-negative")
	}
	if c.TransportRPS > 0 && c.TransportBurst == 0 {
		return fmt.Errorf("TRANSPORT_BURST is required when TRANSPORT_RPS is set")
	}

	if c.PollTimeout < time.Second {
		return fmt.Errorf("POLL_TIMEOUT must be at least 1s")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL: %s (must be debug, info, warn or error)", c.LogLevel)
	}

	return level, nil
}

// HTTPTimeout is the request timeout for the Bot API client. It leaves
// headroom above the long-poll timeout so polls end on the server side.
func (c *Config) HTTPTimeout() time.Duration {
	return c.PollTimeout + 10*time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer from environment variable with a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

// getEnvDuration gets a duration from environment variable with a default value.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
