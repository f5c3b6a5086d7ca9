package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		code := StatusCode(err)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request error", fields...)
		} else {
			logger.Warn("request rejected", fields...)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

// StatusCode maps admission and validation errors onto HTTP status codes.
func StatusCode(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateMessage):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
