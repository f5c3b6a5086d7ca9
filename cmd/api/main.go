package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/message-dispatcher/internal/config"
	"github.com/kursadbilgin/message-dispatcher/internal/dispatcher"
	"github.com/kursadbilgin/message-dispatcher/internal/handler"
	"github.com/kursadbilgin/message-dispatcher/internal/infra/postgresql"
	"github.com/kursadbilgin/message-dispatcher/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/message-dispatcher/internal/infra/redis"
	"github.com/kursadbilgin/message-dispatcher/internal/observability"
	"github.com/kursadbilgin/message-dispatcher/internal/provider"
	"github.com/kursadbilgin/message-dispatcher/internal/queue"
	"github.com/kursadbilgin/message-dispatcher/internal/repository"
	"github.com/kursadbilgin/message-dispatcher/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("message-dispatcher api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	var (
		providers []provider.Provider
		rdb       *redis.Client
		rabbit    *queue.RabbitMQ
		sqlDB     *sql.DB
		attempts  *repository.GormAttemptRepo
	)

	for i, url := range cfg.WebhookURLList() {
		p, err := provider.NewWebhookProvider(fmt.Sprintf("webhook-%d", i), url)
		if err != nil {
			return fmt.Errorf("webhook provider %d: %w", i, err)
		}
		providers = append(providers, p)
	}

	if cfg.RedisURL != "" {
		client, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client

		p, err := provider.NewRedisStreamProvider("", client, cfg.RedisStream)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}

	if cfg.RabbitMQURL != "" {
		client, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		rabbit = client

		publisher := queue.NewRabbitMQPublisher(client)
		defer publisher.Close()

		p, err := provider.NewAMQPProvider("", publisher, cfg.RabbitMQQueue)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}

	baseDelay, err := cfg.BaseDelayDuration()
	if err != nil {
		return err
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(logger),
		dispatcher.WithMetrics(metrics),
	}

	if cfg.DatabaseDSN != "" {
		db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		if err := migrations.Migrate(db); err != nil {
			return fmt.Errorf("database migrations failed: %w", err)
		}

		sqlDB, err = db.DB()
		if err != nil {
			return fmt.Errorf("postgres underlying db init failed: %w", err)
		}
		defer sqlDB.Close()

		attempts = repository.NewGormAttemptRepo(db)
		opts = append(opts, dispatcher.WithAttemptRecorder(attempts))
	}

	d, err := dispatcher.New(providers, dispatcher.Config{
		MaxRetries:              cfg.MaxRetries,
		BaseDelay:               baseDelay,
		RateLimitPerMinute:      cfg.RateLimitPerMinute,
		CircuitBreakerThreshold: cfg.CircuitBreakerThreshold,
	}, opts...)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               "message-dispatcher",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	deps := handler.Dependencies{SQL: sqlDB, Redis: rdb}
	if rabbit != nil {
		deps.RabbitMQ = rabbit
	}
	handler.RegisterHealthRoutes(app, deps)
	if err := handler.RegisterDispatchRoutes(app, d); err != nil {
		return err
	}
	if attempts != nil {
		if err := handler.RegisterAttemptRoutes(app, attempts); err != nil {
			return err
		}
	}

	stats := d.Stats()
	policy := d.Policy()
	logger.Info("message-dispatcher api started",
		zap.Int("port", cfg.APIPort),
		zap.Int("providers", stats.Providers),
		zap.Int("maxRetries", policy.MaxRetries),
		zap.Duration("baseDelay", policy.BaseDelay),
		zap.Int("rateLimitPerMinute", stats.RateLimitPerMinute),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
