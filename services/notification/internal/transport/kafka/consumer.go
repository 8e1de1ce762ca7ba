package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/kafka"
	"github.com/chezmonami/platform/pkg/mylogger"
	"go.uber.org/zap"
)

type StatusNotifier interface {
	HandleOrderStatusChanged(ctx context.Context, eventID int64, event generalDomain.OrderStatusChangedEvent) error
}

type Consumer struct {
	notifier StatusNotifier
	logger   *zap.Logger
	groupID  string
}

func NewConsumer(notifier StatusNotifier, groupID string, logger *zap.Logger) *Consumer {
	if groupID == "" {
		groupID = "notification-service-group"
	}

	return &Consumer{
		notifier: notifier,
		logger:   logger,
		groupID:  groupID,
	}
}

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
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper, skipping", zap.Error(err))
		return nil
	}

	switch wrapper.Event {
	case generalDomain.EventOrderStatusChanged:
		var event generalDomain.OrderStatusChangedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Warn(ctx, c.logger, "Error unmarshalling event structure", zap.Error(err))
			return nil
		}

		return c.notifier.HandleOrderStatusChanged(ctx, wrapper.EventID, event)
	default:
		mylogger.Debug(ctx, c.logger, "Ignored event type", zap.String("event_type", wrapper.Event))
	}

	return nil
}
