package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

const (
	DefaultWindow = time.Minute
	defaultLimit  = 10
)

// FixedWindow is a coarse fixed-window counter. The window restarts lazily on
// the first acquire after it expired, so up to twice the limit can pass in a
// short span straddling a reset.
type FixedWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	count  int
	now    func() time.Time
}

// NewFixedWindow returns a limiter admitting limit acquisitions per window.
// Non-positive arguments fall back to 10 per minute.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return newFixedWindow(limit, window, time.Now)
}

func newFixedWindow(limit int, window time.Duration, nowFn func() time.Time) *FixedWindow {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &FixedWindow{
		limit:  limit,
		window: window,
		start:  nowFn(),
		now:    nowFn,
	}
}

// NewFixedWindowWithClock is NewFixedWindow reading time from nowFn.
func NewFixedWindowWithClock(limit int, window time.Duration, nowFn func() time.Time) *FixedWindow {
	return newFixedWindow(limit, window, nowFn)
}

// TryAcquire takes one slot from the current window or fails with
// domain.ErrRateLimitExceeded, leaving the count unchanged.
func (l *FixedWindow) TryAcquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.start) >= l.window {
		l.count = 0
		l.start = now
	}

	if l.count >= l.limit {
		return fmt.Errorf("%w: %d per %s", domain.ErrRateLimitExceeded, l.limit, l.window)
	}

	l.count++
	return nil
}

// Snapshot returns the count and start of the current window as last observed.
func (l *FixedWindow) Snapshot() (count int, start time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count, l.start
}

func (l *FixedWindow) Limit() int { return l.limit }

func (l *FixedWindow) Window() time.Duration { return l.window }
