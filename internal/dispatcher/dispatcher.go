package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-dispatcher/internal/dedup"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/observability"
	"github.com/kursadbilgin/message-dispatcher/internal/provider"
	"github.com/kursadbilgin/message-dispatcher/internal/ratelimit"
	"go.uber.org/zap"
)

// Dispatcher sends messages through a provider pool. Admission (duplicate and
// rate-limit checks) fails with an error; delivery failure is reported in the
// returned Result. A Dispatcher is safe for concurrent use.
type Dispatcher struct {
	pool    *Pool
	dedup   *dedup.Set
	limiter *ratelimit.FixedWindow
	policy  RetryPolicy
	config  Config

	logger     *zap.Logger
	metrics    *observability.Metrics
	recorder   AttemptRecorder
	rateWindow time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	newID      func() string
}

type Option func(*Dispatcher)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithAttemptRecorder registers a sink for every provider attempt.
func WithAttemptRecorder(recorder AttemptRecorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// WithClock replaces the time source used for message ids, the rate window
// and attempt timing.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSleep replaces the backoff suspension primitive.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithRateWindow overrides the one-minute rate-limit window.
func WithRateWindow(window time.Duration) Option {
	return func(d *Dispatcher) {
		if window > 0 {
			d.rateWindow = window
		}
	}
}

func New(providers []provider.Provider, cfg Config, opts ...Option) (*Dispatcher, error) {
	effective, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	pool, err := NewPool(providers)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		pool:       pool,
		dedup:      dedup.NewSet(),
		policy:     RetryPolicy{MaxRetries: effective.MaxRetries, BaseDelay: effective.BaseDelay},
		config:     effective,
		logger:     zap.NewNop(),
		rateWindow: ratelimit.DefaultWindow,
		now:        time.Now,
		sleep:      sleepWithContext,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.limiter = ratelimit.NewFixedWindowWithClock(effective.RateLimitPerMinute, d.rateWindow, d.now)

	return d, nil
}

// Dispatch admits msg and delivers it through the provider pool.
//
// Returned errors are limited to domain.ErrDuplicateMessage and
// domain.ErrRateLimitExceeded, plus domain.ErrValidation for a message without
// recipient or subject. The validation error is an addition to the two
// admission rejections: it is raised before an id is derived, so it consumes
// neither a dedup slot nor a rate slot. Once admitted, the outcome is always a
// Result with a nil error; exhausting every attempt yields a failed Result.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.Message) (domain.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := msg.Validate(); err != nil {
		d.metrics.IncAdmissionRejected("invalid")
		return domain.Result{}, err
	}

	id := domain.NewMessageID(msg, d.now())
	ctx = observability.WithMessageID(ctx, id.String())
	logger := observability.WithContextLogger(d.logger, ctx)

	if !d.dedup.CheckAndRecord(id) {
		d.metrics.IncAdmissionRejected("duplicate")
		logger.Warn("duplicate message rejected")
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrDuplicateMessage, id)
	}

	if err := d.limiter.TryAcquire(); err != nil {
		d.metrics.IncAdmissionRejected("rate_limited")
		logger.Warn("message rejected by rate limit", zap.Error(err))
		return domain.Result{}, err
	}

	index, receipt, err := d.sendWithRetry(ctx, id, msg)
	if err != nil {
		d.metrics.IncDispatch(domain.StatusFailed.String())
		logger.Error("message delivery failed", zap.Error(err))
		result := domain.FailedResult(err)
		result.ID = id
		return result, nil
	}

	d.metrics.IncDispatch(domain.StatusSuccess.String())
	logger.Info("message dispatched",
		zap.Int("providerIndex", index),
		zap.String("provider", d.pool.Name(index)),
		zap.String("providerMessageId", receipt.MessageID),
	)

	result := domain.SuccessResult(index, receipt.MessageID)
	result.ID = id
	return result, nil
}

// Stats is a point-in-time view of the dispatcher state.
type Stats struct {
	SeenMessages            int
	WindowCount             int
	WindowStart             time.Time
	RateLimitPerMinute      int
	Cursor                  int
	Providers               int
	MaxRetries              int
	BaseDelay               time.Duration
	CircuitBreakerThreshold int
}

func (d *Dispatcher) Stats() Stats {
	count, start := d.limiter.Snapshot()
	return Stats{
		SeenMessages:            d.dedup.Len(),
		WindowCount:             count,
		WindowStart:             start,
		RateLimitPerMinute:      d.limiter.Limit(),
		Cursor:                  d.pool.Cursor(),
		Providers:               d.pool.Len(),
		MaxRetries:              d.policy.MaxRetries,
		BaseDelay:               d.policy.BaseDelay,
		CircuitBreakerThreshold: d.config.CircuitBreakerThreshold,
	}
}

// Policy returns the retry policy in effect.
func (d *Dispatcher) Policy() RetryPolicy { return d.policy }
