package provider

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

// MockProvider simulates a delivery gateway that succeeds with a fixed
// probability after an optional latency.
type MockProvider struct {
	name        string
	successRate float64
	latency     time.Duration
	randFloat   func() float64
	now         func() time.Time
}

type MockOption func(*MockProvider)

// WithLatency delays every Send by d.
func WithLatency(d time.Duration) MockOption {
	return func(p *MockProvider) {
		if d > 0 {
			p.latency = d
		}
	}
}

// WithRandSource replaces the random source deciding success.
func WithRandSource(fn func() float64) MockOption {
	return func(p *MockProvider) {
		if fn != nil {
			p.randFloat = fn
		}
	}
}

// NewMockProvider returns a provider succeeding with probability successRate,
// clamped to [0, 1].
func NewMockProvider(name string, successRate float64, opts ...MockOption) *MockProvider {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}

	p := &MockProvider{
		name:        name,
		successRate: successRate,
		randFloat:   rand.Float64,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) Send(ctx context.Context, msg domain.Message) (*Receipt, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, &ProviderError{
				Provider: p.name,
				Message:  "send interrupted",
				Cause:    ctx.Err(),
			}
		case <-timer.C:
		}
	}

	if p.randFloat() < p.successRate {
		return &Receipt{
			MessageID: fmt.Sprintf("%s-%d", p.name, p.now().UnixMilli()),
			Provider:  p.name,
		}, nil
	}

	return nil, &ProviderError{
		Provider:  p.name,
		Message:   fmt.Sprintf("%s sending failed", p.name),
		Transient: true,
	}
}
