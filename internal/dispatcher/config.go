package dispatcher

import (
	"fmt"
	"math"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

const (
	DefaultMaxRetries              = 3
	DefaultBaseDelay               = time.Second
	DefaultRateLimitPerMinute      = 10
	DefaultCircuitBreakerThreshold = 3

	// backoffMultiplier is the fixed growth factor between retry delays.
	backoffMultiplier = 2

	// maxDelay is where Delay saturates instead of overflowing.
	maxDelay = time.Duration(math.MaxInt64)
)

// Config holds the dispatcher options. Zero values select the defaults.
type Config struct {
	MaxRetries         int
	BaseDelay          time.Duration
	RateLimitPerMinute int

	// CircuitBreakerThreshold is accepted and reported but not consulted by
	// dispatch logic.
	CircuitBreakerThreshold int
}

// RetryPolicy is the immutable retry configuration derived from Config.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Delay returns the wait after the failed attempt with the given zero-based
// index: BaseDelay * 2^attempt, saturating at the largest time.Duration.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if delay > maxDelay/backoffMultiplier {
			return maxDelay
		}
		delay *= backoffMultiplier
	}
	return delay
}

func (c Config) withDefaults() (Config, error) {
	if c.MaxRetries < 0 {
		return c, fmt.Errorf("%w: maxRetries must be positive (got %d)", domain.ErrValidation, c.MaxRetries)
	}
	if c.BaseDelay < 0 {
		return c, fmt.Errorf("%w: baseDelay must not be negative (got %s)", domain.ErrValidation, c.BaseDelay)
	}
	if c.RateLimitPerMinute < 0 {
		return c, fmt.Errorf("%w: rateLimitPerMinute must be positive (got %d)", domain.ErrValidation, c.RateLimitPerMinute)
	}
	if c.CircuitBreakerThreshold < 0 {
		return c, fmt.Errorf("%w: circuitBreakerThreshold must be positive (got %d)", domain.ErrValidation, c.CircuitBreakerThreshold)
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = DefaultCircuitBreakerThreshold
	}
	return c, nil
}
