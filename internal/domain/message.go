package domain

import (
	"fmt"
	"strings"
	"time"
)

// Message is an outbound message handed to delivery providers. It is passed by
// value and never mutated after creation.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	return nil
}

// MessageID identifies one submission of a message.
type MessageID string

func (id MessageID) String() string { return string(id) }

// NewMessageID derives the identifier of msg submitted at submittedAt.
//
// Identity includes the submission instant at millisecond resolution, so two
// submissions of identical content only collide when they share a millisecond.
// Content-only deduplication across separate calls is not provided.
func NewMessageID(msg Message, submittedAt time.Time) MessageID {
	return MessageID(fmt.Sprintf("%s_%s_%d", msg.Recipient, msg.Subject, submittedAt.UnixMilli()))
}
