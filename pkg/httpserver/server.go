package httpserver

import (
	"errors"

	"github.com/chezmonami/platform/pkg/config"
	"github.com/chezmonami/platform/pkg/metrics"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/pkg/utils"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// New builds the fiber app shared by every service: panic recovery, tracing,
// a per-IP rate limit and a /health endpoint. A non-nil reg adds request metrics
// and serves them on /metrics.
func New(name string, cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  cfg.HTTP.Timeout,
		WriteTimeout: cfg.HTTP.Timeout,
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())

	if reg != nil {
		app.Use(metrics.NewHTTPMetrics(reg, name).Middleware())
		app.Get("/metrics", metrics.Handler(reg))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
		})
	})

	if cfg.Limiter.Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.Limiter.Max,
			Expiration: cfg.Limiter.Expiration,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests. Try again later.",
				})
			},
		}))
	}

	return app
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		mylogger.Error(
			c.UserContext(),
			logger,
			"Unhandled request error",
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		return utils.WriteError(c, err)
	}
}
