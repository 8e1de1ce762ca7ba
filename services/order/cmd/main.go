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
	"github.com/chezmonami/platform/pkg/kafka"
	"github.com/chezmonami/platform/pkg/metrics"
	"github.com/chezmonami/platform/pkg/mylogger"
	outboxRepository "github.com/chezmonami/platform/pkg/outbox/repository"
	"github.com/chezmonami/platform/pkg/outbox/worker"
	"github.com/chezmonami/platform/pkg/utils"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/chezmonami/platform/services/order/internal/repository"
	"github.com/chezmonami/platform/services/order/internal/service"
	"github.com/chezmonami/platform/services/order/internal/transport/http"
	"github.com/chezmonami/platform/services/order/internal/transport/http/handler"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()
	if cfg.Service == "" {
		cfg.Service = "order-service"
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

	policy, err := domain.PolicyByName(cfg.Order.TransitionPolicy)
	if err != nil {
		log.Fatalf("invalid order config: %v", err)
	}

	historyMode, err := domain.ParseHistoryMode(cfg.Order.HistoryMode)
	if err != nil {
		log.Fatalf("invalid order config: %v", err)
	}

	if err := db.RunMigrations(cfg.Postgres.Migrations, cfg.Postgres.URL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(redisClient, cfg.Order.CartTTL, logger)
	outboxRepo := outboxRepository.NewOutboxRepository()

	reg := metrics.NewRegistry()

	orderService := service.NewOrderService(
		pool,
		logger,
		orderRepo,
		outboxRepo,
		service.WithTransitionPolicy(policy),
		service.WithHistoryMode(historyMode),
		service.WithDefaultCurrency(cfg.Order.DefaultCurrency),
		service.WithMetrics(service.NewMetrics(reg)),
	)
	cartService := service.NewCartService(cartRepo, orderService, logger)

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	app := httpserver.New(cfg.Service, cfg, logger, reg)
	http.RegisterRoutes(app, &http.Handlers{
		Order: handler.NewOrderHandler(orderService, logger, cfg.HTTP.Timeout),
		Cart:  handler.NewCartHandler(cartService, logger, cfg.HTTP.Timeout),
	})

	go func() {
		mylogger.Info(ctx, logger, "HTTP server listening", zap.String("addr", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error listening on %s: %v", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down order service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to stop HTTP server", zap.Error(err))
	}

	if err := kafkaProducer.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close kafka producer", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
