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
	"github.com/chezmonami/platform/services/promotion/internal/repository"
	"github.com/chezmonami/platform/services/promotion/internal/service"
	"github.com/chezmonami/platform/services/promotion/internal/transport/http"
	"github.com/chezmonami/platform/services/promotion/internal/transport/http/handler"
	promotionKafka "github.com/chezmonami/platform/services/promotion/internal/transport/kafka"
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
		cfg.Service = "promotion-service"
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	promotionRepo := repository.NewPromotionRepository(pool, logger)
	placementRepo := repository.NewPlacementRepository(pool, logger)
	catalogRepo := repository.NewCatalogRepository(pool, logger)

	reg := metrics.NewRegistry()

	promotionService := service.NewPromotionService(
		promotionRepo,
		catalogRepo,
		logger,
		service.WithDefaultCurrency(cfg.Order.DefaultCurrency),
	)
	placementService := service.NewCachedPlacementService(
		service.NewPlacementService(placementRepo, catalogRepo, logger),
		redisClient,
		cfg.Cache.PlacementsTTL,
		logger,
	)

	consumer := promotionKafka.NewConsumer(promotionService, pool, cfg.Kafka.GroupID, logger)
	go func() {
		if err := consumer.Start(ctx, cfg.Kafka.Brokers); err != nil {
			mylogger.Error(ctx, logger, "Order events consumer stopped", zap.Error(err))
		}
	}()

	app := httpserver.New(cfg.Service, cfg, logger, reg)
	http.RegisterRoutes(app, &http.Handlers{
		Promotion: handler.NewPromotionHandler(promotionService, logger, cfg.HTTP.Timeout),
		Placement: handler.NewPlacementHandler(placementService, logger, cfg.HTTP.Timeout),
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

	mylogger.Info(shutdownCtx, logger, "Shutting down promotion service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to stop HTTP server", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
