package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/observability"
	"github.com/kursadbilgin/message-dispatcher/internal/transport"
)

const (
	headerCorrelationID = "X-Correlation-ID"
	headerMessageID     = "X-Message-ID"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.Message) (domain.Result, error)
}

type DispatchHandler struct {
	dispatcher Dispatcher
}

func NewDispatchHandler(dispatcher Dispatcher) (*DispatchHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	return &DispatchHandler{dispatcher: dispatcher}, nil
}

func RegisterDispatchRoutes(router fiber.Router, dispatcher Dispatcher) error {
	h, err := NewDispatchHandler(dispatcher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages", h.SendMessage)

	return nil
}

type sendMessageRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendMessage dispatches one message. Admission errors go to the app error
// handler; an exhausted delivery is answered with 502 and the failed result.
// The dispatcher id of an admitted message is echoed in X-Message-ID.
func (h *DispatchHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	correlationID := requestCorrelationID(c)
	c.Set(headerCorrelationID, correlationID)

	ctx := observability.WithCorrelationID(c.UserContext(), correlationID)

	result, err := h.dispatcher.Dispatch(ctx, domain.Message{
		Recipient: strings.TrimSpace(req.To),
		Subject:   req.Subject,
		Body:      req.Body,
	})
	if err != nil {
		return toHTTPError(err)
	}
	c.Set(headerMessageID, result.ID.String())

	status := fiber.StatusOK
	if !result.Succeeded() {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(result)
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(headerCorrelationID)); value != "" {
		return value
	}
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	return uuid.NewString()
}

// toHTTPError converts domain errors into fiber errors so that middleware
// running before the app error handler sees the final status code.
func toHTTPError(err error) error {
	return fiber.NewError(transport.StatusCode(err), err.Error())
}
