package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/observability"
	"github.com/kursadbilgin/message-dispatcher/internal/provider"
	"go.uber.org/zap"
)

// sendWithRetry tries providers one at a time, starting at the pool cursor.
// Every failed attempt except the last waits BaseDelay*2^attempt and then
// rotates the cursor to the next provider. Individual provider errors are only
// surfaced through the aggregate ErrAllProvidersFailed.
func (d *Dispatcher) sendWithRetry(ctx context.Context, id domain.MessageID, msg domain.Message) (int, *provider.Receipt, error) {
	logger := observability.WithContextLogger(d.logger, ctx)

	var lastErr error
	for attempt := 0; attempt < d.policy.MaxRetries; attempt++ {
		index, p := d.pool.Current()
		name := d.pool.Name(index)

		start := d.now()
		receipt, err := p.Send(ctx, msg)
		elapsed := d.now().Sub(start)

		d.metrics.ObserveProviderSendDuration(name, elapsed)
		d.recordAttempt(ctx, id, attempt+1, index, name, elapsed, err)

		if err == nil {
			if receipt == nil {
				receipt = &provider.Receipt{Provider: name}
			}
			d.metrics.IncProviderAttempt(name, "success")
			logger.Debug("provider accepted message",
				zap.Int("attempt", attempt+1),
				zap.Int("providerIndex", index),
				zap.String("provider", name),
				zap.String("providerMessageId", receipt.MessageID),
			)
			return index, receipt, nil
		}

		lastErr = err
		d.metrics.IncProviderAttempt(name, "error")
		logger.Warn("provider attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("maxRetries", d.policy.MaxRetries),
			zap.Int("providerIndex", index),
			zap.String("provider", name),
			zap.Bool("transient", provider.IsTransient(err)),
			zap.Error(err),
		)

		if attempt == d.policy.MaxRetries-1 {
			break
		}

		wait := d.policy.Delay(attempt)
		d.metrics.ObserveBackoff(wait)
		if err := d.sleep(ctx, wait); err != nil {
			return -1, nil, fmt.Errorf("%w: interrupted after %d attempts: %w", domain.ErrAllProvidersFailed, attempt+1, err)
		}
		d.pool.Advance()
	}

	return -1, nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrAllProvidersFailed, d.policy.MaxRetries, lastErr)
}

func (d *Dispatcher) recordAttempt(
	ctx context.Context,
	id domain.MessageID,
	attemptNumber int,
	providerIndex int,
	providerName string,
	elapsed time.Duration,
	sendErr error,
) {
	if d.recorder == nil {
		return
	}

	attempt := &domain.DispatchAttempt{
		ID:            d.newID(),
		MessageID:     id,
		AttemptNumber: attemptNumber,
		ProviderIndex: providerIndex,
		ProviderName:  providerName,
		Success:       sendErr == nil,
		Duration:      elapsed,
		CreatedAt:     d.now().UTC(),
	}
	if sendErr != nil {
		value := sendErr.Error()
		attempt.Error = &value
	}

	if err := d.recorder.Record(ctx, attempt); err != nil {
		d.logger.Warn("failed to record dispatch attempt",
			zap.String("messageId", id.String()),
			zap.Int("attempt", attemptNumber),
			zap.Error(err),
		)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
