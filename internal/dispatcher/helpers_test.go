package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/provider"
)

var errGatewayDown = errors.New("gateway down")

type fakeProvider struct {
	name   string
	sendFn func(ctx context.Context, msg domain.Message) (*provider.Receipt, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Send(ctx context.Context, msg domain.Message) (*provider.Receipt, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.sendFn == nil {
		return &provider.Receipt{MessageID: f.name + "-receipt", Provider: f.name}, nil
	}
	return f.sendFn(ctx, msg)
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func succeeding(name string) *fakeProvider {
	return &fakeProvider{name: name}
}

func failing(name string) *fakeProvider {
	return &fakeProvider{
		name: name,
		sendFn: func(ctx context.Context, msg domain.Message) (*provider.Receipt, error) {
			return nil, &provider.ProviderError{Provider: name, Message: "send failed", Transient: true, Cause: errGatewayDown}
		},
	}
}

// testClock only moves when advanced, which makes message ids and rate
// windows deterministic.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSleeper records backoff waits and advances the clock instead of
// blocking.
type recordingSleeper struct {
	clock *testClock

	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()

	if s.clock != nil {
		s.clock.Advance(d)
	}
	return ctx.Err()
}

func (s *recordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func (s *recordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, w := range s.Waits() {
		total += w
	}
	return total
}

type memoryRecorder struct {
	mu       sync.Mutex
	attempts []domain.DispatchAttempt
	err      error
}

func (r *memoryRecorder) Record(ctx context.Context, attempt *domain.DispatchAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *attempt)
	return r.err
}

func (r *memoryRecorder) Attempts() []domain.DispatchAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DispatchAttempt(nil), r.attempts...)
}

func newTestDispatcher(providers []provider.Provider, cfg Config, opts ...Option) (*Dispatcher, *testClock, *recordingSleeper, error) {
	clock := newTestClock()
	sleeper := &recordingSleeper{clock: clock}

	base := []Option{WithClock(clock.Now), WithSleep(sleeper.Sleep)}
	d, err := New(providers, cfg, append(base, opts...)...)
	return d, clock, sleeper, err
}

func testMessage(i int) domain.Message {
	return domain.Message{
		Recipient: fmt.Sprintf("user%d@example.com", i),
		Subject:   "Welcome",
		Body:      "hello",
	}
}
