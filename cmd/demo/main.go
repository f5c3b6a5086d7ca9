package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/dispatcher"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/observability"
	"github.com/kursadbilgin/message-dispatcher/internal/provider"
	"go.uber.org/zap"
)

const networkDelay = 100 * time.Millisecond

type scenario struct {
	description string
	messages    []domain.Message
	// resend submits each message a second time at the same instant.
	resend bool
}

// scenarioClock holds one submission instant per scenario so that a resend
// reproduces the original message id.
type scenarioClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *scenarioClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *scenarioClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func main() {
	logger, err := observability.NewLogger("info", "console")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	clock := &scenarioClock{now: time.Now()}

	d, err := dispatcher.New(
		[]provider.Provider{
			provider.NewMockProvider("FastProvider", 0.7, provider.WithLatency(networkDelay)),
			provider.NewMockProvider("SlowProvider", 0.4, provider.WithLatency(networkDelay+500*time.Millisecond)),
		},
		dispatcher.Config{
			MaxRetries:         3,
			BaseDelay:          500 * time.Millisecond,
			RateLimitPerMinute: 5,
		},
		dispatcher.WithLogger(logger.Named("dispatcher")),
		dispatcher.WithClock(clock.Now),
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	ctx := context.Background()
	for _, s := range scenarios() {
		logger.Info("--- " + s.description + " ---")
		clock.Set(time.Now())

		for _, msg := range s.messages {
			send(ctx, logger, d, msg, "send")
			if s.resend {
				send(ctx, logger, d, msg, "resend")
			}
		}
	}

	stats := d.Stats()
	logger.Info("demo finished",
		zap.Int("seenMessages", stats.SeenMessages),
		zap.Int("windowCount", stats.WindowCount),
		zap.Int("cursor", stats.Cursor),
	)
}

func send(ctx context.Context, logger *zap.Logger, d *dispatcher.Dispatcher, msg domain.Message, label string) {
	result, err := d.Dispatch(ctx, msg)
	if err != nil {
		logger.Warn(label+" rejected", zap.String("to", msg.Recipient), zap.Error(err))
		return
	}

	if result.Succeeded() {
		logger.Info(label+" result",
			zap.String("to", msg.Recipient),
			zap.String("status", result.Status.String()),
			zap.Int("providerId", result.ProviderID),
			zap.String("messageId", result.MessageID),
		)
		return
	}
	logger.Warn(label+" result",
		zap.String("to", msg.Recipient),
		zap.String("status", result.Status.String()),
		zap.String("error", result.Error),
	)
}

func scenarios() []scenario {
	rateLimited := make([]domain.Message, 0, 6)
	for i := 0; i < 6; i++ {
		rateLimited = append(rateLimited, domain.Message{
			Recipient: fmt.Sprintf("ratelimit%d@example.com", i),
			Subject:   fmt.Sprintf("Rate Limit Email %d", i),
			Body:      "Testing rate limiting",
		})
	}

	return []scenario{
		{
			description: "Successful Message Send",
			messages: []domain.Message{{
				Recipient: "success@example.com",
				Subject:   "First Email",
				Body:      "This is a successful email test",
			}},
			resend: true,
		},
		{
			description: "Duplicate Message Prevention",
			messages: []domain.Message{{
				Recipient: "duplicate@example.com",
				Subject:   "Duplicate Email",
				Body:      "This email should be blocked",
			}},
			resend: true,
		},
		{
			description: "Rate Limit Testing",
			messages:    rateLimited,
		},
	}
}
