package queue

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes a prepared AMQP message to a work queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, publishing amqp.Publishing) error
	Close() error
}

// DLQName returns the dead-letter queue name for a work queue, e.g. outbound.dlq.
func DLQName(queue string) string {
	return fmt.Sprintf("%s.dlq", normalizeQueueName(queue))
}

func normalizeQueueName(queue string) string {
	return strings.ToLower(strings.TrimSpace(queue))
}
