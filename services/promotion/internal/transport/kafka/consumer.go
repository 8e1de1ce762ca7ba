package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/kafka"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/pkg/outbox/utils"
	"github.com/chezmonami/platform/services/promotion/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const consumerName = "promotion-service"

// DedupConfig scopes processed_events rows to this consumer.
var DedupConfig = utils.DedupConfig{Consumer: consumerName, Attempts: 3, Backoff: 200 * time.Millisecond}

// Consumer applies order events to promotional stock counters.
type Consumer struct {
	service service.PromotionService
	pool    *pgxpool.Pool
	logger  *zap.Logger
	groupID string
}

func NewConsumer(service service.PromotionService, pool *pgxpool.Pool, groupID string, logger *zap.Logger) *Consumer {
	if groupID == "" {
		groupID = consumerName + "-group"
	}

	return &Consumer{
		service: service,
		pool:    pool,
		logger:  logger,
		groupID: groupID,
	}
}

// Start blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context, brokers []string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		c.groupID,
		[]string{generalDomain.TopicOrderEvents},
		c.Handle,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

type eventWrapper struct {
	Event   string          `json:"event"`
	EventID int64           `json:"event_id"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Consumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Debug(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
	)

	var wrapper eventWrapper
	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		// a poison message would block the partition forever
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper, skipping", zap.Error(err))
		return nil
	}

	switch wrapper.Event {
	case generalDomain.EventOrderCreated:
		var event generalDomain.OrderCreatedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Warn(ctx, c.logger, "Error unmarshalling event structure", zap.Error(err))
			return nil
		}

		return utils.ProcessWithDeduplication(
			ctx,
			c.pool,
			c.logger,
			DedupConfig,
			wrapper.EventID,
			func(ctx context.Context, tx pgx.Tx) error {
				return c.service.RecordOrder(ctx, tx, &event)
			},
		)
	default:
		mylogger.Debug(ctx, c.logger, "Ignored event type", zap.String("event_type", wrapper.Event))
	}

	return nil
}
