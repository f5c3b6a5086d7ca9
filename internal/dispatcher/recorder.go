package dispatcher

import (
	"context"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

// AttemptRecorder receives every provider attempt made by the dispatcher.
// Recording errors are logged and never affect the dispatch outcome.
type AttemptRecorder interface {
	Record(ctx context.Context, attempt *domain.DispatchAttempt) error
}
