package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/queue"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPProvider delivers messages by publishing them to a RabbitMQ work queue.
// The generated delivery id doubles as the AMQP message id and the receipt id.
type AMQPProvider struct {
	name      string
	publisher queue.Publisher
	queue     string
	now       func() time.Time
	newID     func() string
}

func NewAMQPProvider(name string, publisher queue.Publisher, queueName string) (*AMQPProvider, error) {
	if publisher == nil {
		return nil, fmt.Errorf("amqp publisher is required")
	}
	trimmedQueue := strings.TrimSpace(queueName)
	if trimmedQueue == "" {
		return nil, fmt.Errorf("amqp queue name is required")
	}
	if strings.TrimSpace(name) == "" {
		name = "amqp:" + trimmedQueue
	}

	return &AMQPProvider{
		name:      name,
		publisher: publisher,
		queue:     trimmedQueue,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

func (p *AMQPProvider) Name() string { return p.name }

func (p *AMQPProvider) Send(ctx context.Context, msg domain.Message) (*Receipt, error) {
	if p == nil || p.publisher == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := p.now()
	deliveryID := p.newID()

	payload, err := queue.NewOutboundMessage(deliveryID, msg, now).Marshal()
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Message: "invalid payload", Cause: err}
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		MessageId:    deliveryID,
		Body:         payload,
	}

	if err := p.publisher.Publish(ctx, p.queue, publishing); err != nil {
		return nil, &ProviderError{
			Provider:  p.name,
			Message:   "publish failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	return &Receipt{
		MessageID: deliveryID,
		Provider:  p.name,
	}, nil
}
