package service

import (
	"context"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	outboxUtils "github.com/chezmonami/platform/pkg/outbox/utils"
	"github.com/chezmonami/platform/services/notification/internal/domain"
	"github.com/chezmonami/platform/services/notification/internal/infrastructure/email"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const consumerName = "notification-service"

type NotificationService struct {
	emailSender email.Sender
	logger      *zap.Logger
	pool        *pgxpool.Pool
	tracer      trace.Tracer
	dedup       outboxUtils.DedupConfig
	metrics     *Metrics
}

type Option func(*NotificationService)

func WithMetrics(m *Metrics) Option {
	return func(s *NotificationService) {
		s.metrics = m
	}
}

// WithRetry overrides the per-event send attempts and backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *NotificationService) {
		s.dedup.Attempts = attempts
		s.dedup.Backoff = backoff
	}
}

func NewNotificationService(
	emailSender email.Sender,
	logger *zap.Logger,
	pool *pgxpool.Pool,
	opts ...Option,
) *NotificationService {
	s := &NotificationService{
		emailSender: emailSender,
		logger:      logger,
		pool:        pool,
		tracer:      otel.Tracer("notification-service"),
		dedup: outboxUtils.DedupConfig{
			Consumer: consumerName,
			Attempts: 3,
			Backoff:  500 * time.Millisecond,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HandleOrderStatusChanged emails the customer at most once per event.
func (s *NotificationService) HandleOrderStatusChanged(
	ctx context.Context,
	eventID int64,
	event generalDomain.OrderStatusChangedEvent,
) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderStatusChanged")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.Int64("order.id", event.OrderID),
		attribute.String("order.status", event.NewStatus),
	)

	msg, ok, err := domain.BuildStatusMessage(event)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, s.logger, "Error rendering status email", zap.Int64("order_id", event.OrderID), zap.Error(err))
		return nil
	}
	if !ok {
		s.metrics.record(event.NewStatus, "skipped")
		mylogger.Debug(
			ctx,
			s.logger,
			"No email for status change",
			zap.Int64("order_id", event.OrderID),
			zap.String("status", event.NewStatus),
		)
		return nil
	}

	err = outboxUtils.ProcessWithDeduplication(ctx, s.pool, s.logger, s.dedup, eventID, func(ctx context.Context, _ pgx.Tx) error {
		if err := s.emailSender.Send(ctx, msg); err != nil {
			return err
		}

		s.metrics.record(event.NewStatus, "sent")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.record(event.NewStatus, "failed")
		return err
	}

	return nil
}
