package repository

import (
	"time"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

// DispatchAttemptModel is the persistence model for the dispatch_attempts table.
type DispatchAttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	MessageID     string  `gorm:"type:varchar(512);not null"`
	AttemptNumber int     `gorm:"not null"`
	ProviderIndex int     `gorm:"not null"`
	ProviderName  string  `gorm:"type:varchar(255);not null"`
	Success       bool    `gorm:"not null"`
	Error         *string `gorm:"type:text"`
	DurationMs    int64   `gorm:"not null"`
	CreatedAt     time.Time
}

func (DispatchAttemptModel) TableName() string {
	return "dispatch_attempts"
}

func attemptModelFromDomain(a *domain.DispatchAttempt) *DispatchAttemptModel {
	if a == nil {
		return nil
	}

	return &DispatchAttemptModel{
		ID:            a.ID,
		MessageID:     a.MessageID.String(),
		AttemptNumber: a.AttemptNumber,
		ProviderIndex: a.ProviderIndex,
		ProviderName:  a.ProviderName,
		Success:       a.Success,
		Error:         a.Error,
		DurationMs:    a.Duration.Milliseconds(),
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *DispatchAttemptModel) *domain.DispatchAttempt {
	if m == nil {
		return nil
	}

	return &domain.DispatchAttempt{
		ID:            m.ID,
		MessageID:     domain.MessageID(m.MessageID),
		AttemptNumber: m.AttemptNumber,
		ProviderIndex: m.ProviderIndex,
		ProviderName:  m.ProviderName,
		Success:       m.Success,
		Error:         m.Error,
		Duration:      time.Duration(m.DurationMs) * time.Millisecond,
		CreatedAt:     m.CreatedAt,
	}
}
