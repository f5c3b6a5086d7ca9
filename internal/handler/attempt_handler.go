package handler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

// AttemptLister reads the delivery-attempt audit log.
type AttemptLister interface {
	ListByMessageID(ctx context.Context, messageID domain.MessageID) ([]domain.DispatchAttempt, error)
}

type AttemptHandler struct {
	attempts AttemptLister
}

func NewAttemptHandler(attempts AttemptLister) (*AttemptHandler, error) {
	if attempts == nil {
		return nil, fmt.Errorf("attempt lister is required")
	}
	return &AttemptHandler{attempts: attempts}, nil
}

func RegisterAttemptRoutes(router fiber.Router, attempts AttemptLister) error {
	h, err := NewAttemptHandler(attempts)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/messages/:id/attempts", h.ListAttempts)

	return nil
}

type attemptResponse struct {
	ID            string    `json:"id"`
	AttemptNumber int       `json:"attemptNumber"`
	ProviderIndex int       `json:"providerIndex"`
	Provider      string    `json:"provider"`
	Success       bool      `json:"success"`
	Error         *string   `json:"error,omitempty"`
	DurationMs    int64     `json:"durationMs"`
	CreatedAt     time.Time `json:"createdAt"`
}

type attemptListResponse struct {
	MessageID string            `json:"messageId"`
	Attempts  []attemptResponse `json:"attempts"`
}

func (h *AttemptHandler) ListAttempts(c *fiber.Ctx) error {
	raw, err := url.PathUnescape(c.Params("id"))
	if err != nil || strings.TrimSpace(raw) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message id")
	}
	id := domain.MessageID(raw)

	attempts, err := h.attempts.ListByMessageID(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	if len(attempts) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "no attempts recorded for message")
	}

	response := attemptListResponse{
		MessageID: id.String(),
		Attempts:  make([]attemptResponse, 0, len(attempts)),
	}
	for _, a := range attempts {
		response.Attempts = append(response.Attempts, attemptResponse{
			ID:            a.ID,
			AttemptNumber: a.AttemptNumber,
			ProviderIndex: a.ProviderIndex,
			Provider:      a.ProviderName,
			Success:       a.Success,
			Error:         a.Error,
			DurationMs:    a.Duration.Milliseconds(),
			CreatedAt:     a.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
