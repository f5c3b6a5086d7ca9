package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const defaultStreamMaxLen int64 = 10000

// RedisStreamProvider hands messages off to a Redis stream consumed by an
// external sender. The stream entry id is the receipt id.
type RedisStreamProvider struct {
	name   string
	client *goredis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

func NewRedisStreamProvider(name string, client *goredis.Client, stream string) (*RedisStreamProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	trimmedStream := strings.TrimSpace(stream)
	if trimmedStream == "" {
		return nil, fmt.Errorf("redis stream name is required")
	}
	if strings.TrimSpace(name) == "" {
		name = "redis:" + trimmedStream
	}

	return &RedisStreamProvider{
		name:   name,
		client: client,
		stream: trimmedStream,
		maxLen: defaultStreamMaxLen,
		now:    time.Now,
	}, nil
}

func (p *RedisStreamProvider) Name() string { return p.name }

func (p *RedisStreamProvider) Send(ctx context.Context, msg domain.Message) (*Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entryID, err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"recipient":   msg.Recipient,
			"subject":     msg.Subject,
			"body":        msg.Body,
			"submittedAt": p.now().UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return nil, &ProviderError{
			Provider:  p.name,
			Message:   fmt.Sprintf("failed to append to stream %q", p.stream),
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	return &Receipt{
		MessageID: entryID,
		Provider:  p.name,
	}, nil
}
