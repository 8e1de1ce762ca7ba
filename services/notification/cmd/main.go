package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/chezmonami/platform/pkg/config"
	"github.com/chezmonami/platform/pkg/db"
	"github.com/chezmonami/platform/pkg/httpserver"
	"github.com/chezmonami/platform/pkg/metrics"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/pkg/utils"
	"github.com/chezmonami/platform/services/notification/internal/infrastructure/email"
	"github.com/chezmonami/platform/services/notification/internal/service"
	"github.com/chezmonami/platform/services/notification/internal/transport/kafka"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()
	if cfg.Service == "" {
		cfg.Service = "notification-service"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, cfg.Service, cfg.Tracing.Endpoint, cfg.Env)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	if err := db.RunMigrations(cfg.Postgres.Migrations, cfg.Postgres.URL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	var sender email.Sender
	if cfg.SMTP.Host == "" {
		mylogger.Warn(ctx, logger, "SMTP host not set, emails will only be logged")
		sender = email.NewLogSender(logger)
	} else {
		breaker := utils.NewBreaker("smtp", utils.BreakerSettings{
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
		}, logger)
		sender = email.NewSMTPSender(cfg.SMTP, breaker, logger)
	}

	reg := metrics.NewRegistry()
	notificationService := service.NewNotificationService(
		sender,
		logger,
		pool,
		service.WithMetrics(service.NewMetrics(reg)),
	)

	consumer := kafka.NewConsumer(notificationService, cfg.Kafka.GroupID, logger)
	go func() {
		if err := consumer.Start(ctx, cfg.Kafka.Brokers); err != nil {
			mylogger.Error(ctx, logger, "Order events consumer stopped", zap.Error(err))
			stop()
		}
	}()

	// health and metrics only
	app := httpserver.New(cfg.Service, cfg, logger, reg)
	go func() {
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error listening on %s: %v", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down notification service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to stop HTTP server", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
