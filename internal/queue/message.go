package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

// OutboundMessage is the broker payload handed to downstream senders.
type OutboundMessage struct {
	DeliveryID  string    `json:"deliveryId"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func NewOutboundMessage(deliveryID string, msg domain.Message, submittedAt time.Time) OutboundMessage {
	return OutboundMessage{
		DeliveryID:  deliveryID,
		Recipient:   msg.Recipient,
		Subject:     msg.Subject,
		Body:        msg.Body,
		SubmittedAt: submittedAt.UTC(),
	}
}

func (m OutboundMessage) Validate() error {
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("deliveryId is required")
	}
	if strings.TrimSpace(m.Recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	return nil
}

func (m OutboundMessage) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid outbound message: %w", err)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbound message: %w", err)
	}
	return payload, nil
}
