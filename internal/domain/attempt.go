package domain

import "time"

// DispatchAttempt records a single provider call made while delivering a message.
type DispatchAttempt struct {
	ID            string
	MessageID     MessageID
	AttemptNumber int
	ProviderIndex int
	ProviderName  string
	Success       bool
	Error         *string
	Duration      time.Duration
	CreatedAt     time.Time
}
