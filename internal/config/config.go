package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	APIPort   int    `env:"API_PORT,default=8080"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	MaxRetries              int    `env:"DISPATCH_MAX_RETRIES,default=3"`
	BaseDelay               string `env:"DISPATCH_BASE_DELAY,default=1s"`
	RateLimitPerMinute      int    `env:"RATE_LIMIT_PER_MINUTE,default=10"`
	CircuitBreakerThreshold int    `env:"CIRCUIT_BREAKER_THRESHOLD,default=3"`

	// Provider sources. At least one must be configured.
	WebhookURLs   string `env:"WEBHOOK_URLS"`
	RedisURL      string `env:"REDIS_URL"`
	RedisStream   string `env:"REDIS_STREAM,default=outbound-messages"`
	RabbitMQURL   string `env:"RABBITMQ_URL"`
	RabbitMQQueue string `env:"RABBITMQ_QUEUE,default=outbound-messages"`

	// DatabaseDSN enables the attempt audit log when set.
	DatabaseDSN string `env:"DATABASE_DSN"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT must be between 1 and 65535 (got %d)", c.APIPort))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_MAX_RETRIES must not be negative (got %d)", c.MaxRetries))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative (got %d)", c.RateLimitPerMinute))
	}
	if c.CircuitBreakerThreshold < 0 {
		errs = append(errs, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must not be negative (got %d)", c.CircuitBreakerThreshold))
	}
	if _, err := c.BaseDelayDuration(); err != nil {
		errs = append(errs, err)
	}
	if len(c.WebhookURLList()) == 0 && c.RedisURL == "" && c.RabbitMQURL == "" {
		errs = append(errs, errors.New("at least one provider must be configured via WEBHOOK_URLS, REDIS_URL or RABBITMQ_URL"))
	}

	return errors.Join(errs...)
}

// BaseDelayDuration parses DISPATCH_BASE_DELAY.
func (c *Config) BaseDelayDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.BaseDelay))
	if err != nil {
		return 0, fmt.Errorf("DISPATCH_BASE_DELAY: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("DISPATCH_BASE_DELAY must not be negative (got %s)", d)
	}
	return d, nil
}

// WebhookURLList splits WEBHOOK_URLS on commas, dropping blanks.
func (c *Config) WebhookURLList() []string {
	var urls []string
	for _, raw := range strings.Split(c.WebhookURLs, ",") {
		if u := strings.TrimSpace(raw); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
