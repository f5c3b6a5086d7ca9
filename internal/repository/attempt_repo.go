package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"gorm.io/gorm"
)

// GormAttemptRepo is an append-only audit log of provider attempts.
type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) Record(ctx context.Context, a *domain.DispatchAttempt) error {
	if a == nil {
		return errors.New("attempt is nil")
	}

	model := attemptModelFromDomain(a)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*a = *attemptModelToDomain(model)
	return nil
}

func (r *GormAttemptRepo) ListByMessageID(ctx context.Context, messageID domain.MessageID) ([]domain.DispatchAttempt, error) {
	var models []DispatchAttemptModel
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID.String()).
		Order("attempt_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DispatchAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
