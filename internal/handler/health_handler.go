package handler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

type brokerHealth interface {
	Healthy() bool
}

// Dependencies lists the optional backends checked by /readyz. Nil entries
// are skipped.
type Dependencies struct {
	SQL      *sql.DB
	Redis    *redis.Client
	RabbitMQ brokerHealth
}

func RegisterHealthRoutes(app fiber.Router, deps Dependencies) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(deps))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		checks := fiber.Map{}
		ready := true
		record := func(name string, err error) {
			if err != nil {
				checks[name] = "down"
				ready = false
				return
			}
			checks[name] = "ok"
		}

		if deps.SQL != nil {
			record("postgres", deps.SQL.PingContext(ctx))
		}
		if deps.Redis != nil {
			record("redis", deps.Redis.Ping(ctx).Err())
		}
		if deps.RabbitMQ != nil {
			var err error
			if !deps.RabbitMQ.Healthy() {
				err = errors.New("connection closed")
			}
			record("rabbitmq", err)
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
