package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ Publisher = (*RabbitMQPublisher)(nil)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queue string, publishing amqp.Publishing) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if normalizeQueueName(queue) == "" {
		return fmt.Errorf("queue name is required")
	}

	ch, err := p.client.channel(ctx, queue)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.PublishWithContext(ctx, "", normalizeQueueName(queue), false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message to queue %q: %w", queue, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
