package tests

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/outbox/utils"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
	"github.com/chezmonami/platform/services/promotion/internal/transport/kafka"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) orderCreatedMessage(eventID int64, lines ...generalDomain.OrderLine) *sarama.ConsumerMessage {
	value, err := json.Marshal(map[string]any{
		"event":    generalDomain.EventOrderCreated,
		"event_id": eventID,
		"payload": generalDomain.OrderCreatedEvent{
			OrderID:     eventID,
			OrderNumber: "CMA-20260101-ABCDEF",
			Currency:    "XOF",
			Items:       lines,
			CreatedAt:   s.now,
		},
	})
	s.Require().NoError(err)

	return &sarama.ConsumerMessage{Topic: generalDomain.TopicOrderEvents, Value: value}
}

func (s *IntegrationTestSuite) TestConsumer_OrderCreatedConsumesStockCap() {
	productID := s.seedProduct("Bissap 1L", "1500")
	limit := int32(3)

	capped, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID, Kind: domain.KindPercentage, Value: decimal.NewFromInt(20),
		StartsAt: s.at(-time.Hour), EndsAt: s.at(time.Hour), StockCap: &limit, Enabled: true,
	})
	s.Require().NoError(err)

	line := generalDomain.OrderLine{ProductID: productID, Quantity: 2, UnitPrice: decimal.NewFromInt(1200)}

	s.Require().NoError(s.Consumer.Handle(s.Ctx, s.orderCreatedMessage(1, line)))
	// redelivery of the same event is a no-op
	s.Require().NoError(s.Consumer.Handle(s.Ctx, s.orderCreatedMessage(1, line)))

	stored, err := s.PromotionService.Get(s.Ctx, capped.ID)
	s.Require().NoError(err)
	s.Require().Equal(int32(2), stored.SoldCount)

	active, err := s.PromotionService.ListActive(s.Ctx, &productID)
	s.Require().NoError(err)
	s.Require().Len(active, 1)

	s.Require().NoError(s.Consumer.Handle(s.Ctx, s.orderCreatedMessage(2, line)))

	stored, err = s.PromotionService.Get(s.Ctx, capped.ID)
	s.Require().NoError(err)
	s.Require().Equal(int32(3), stored.SoldCount)
	s.Require().True(stored.Exhausted())

	active, err = s.PromotionService.ListActive(s.Ctx, &productID)
	s.Require().NoError(err)
	s.Require().Empty(active)
}

func (s *IntegrationTestSuite) TestConsumer_IgnoresOtherEventsAndGarbage() {
	s.Require().NoError(s.Consumer.Handle(s.Ctx, &sarama.ConsumerMessage{Value: []byte(`not json`)}))
	s.Require().NoError(s.Consumer.Handle(s.Ctx, &sarama.ConsumerMessage{
		Value: []byte(`{"event":"OrderStatusChanged","event_id":9,"payload":{}}`),
	}))

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_events`).Scan(&count))
	s.Require().Zero(count)
}

func (s *IntegrationTestSuite) TestConsumer_FailedCommitKeepsNoStock() {
	productID := s.seedProduct("Thiakry", "800")
	limit := int32(10)

	capped, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID, Kind: domain.KindFixedAmount, Value: decimal.NewFromInt(100),
		StartsAt: s.at(-time.Hour), EndsAt: s.at(time.Hour), StockCap: &limit, Enabled: true,
	})
	s.Require().NoError(err)

	// a deferred unique constraint only fails at COMMIT
	_, err = s.DbPool.Exec(s.Ctx, `CREATE TABLE commit_guard (id INT UNIQUE DEFERRABLE INITIALLY DEFERRED)`)
	s.Require().NoError(err)
	defer func() {
		_, _ = s.DbPool.Exec(context.Background(), `DROP TABLE IF EXISTS commit_guard`)
	}()

	line := generalDomain.OrderLine{ProductID: productID, Quantity: 4, UnitPrice: decimal.NewFromInt(700)}
	event := generalDomain.OrderCreatedEvent{OrderID: 21, Items: []generalDomain.OrderLine{line}, CreatedAt: s.now}

	err = utils.ProcessWithDeduplication(s.Ctx, s.DbPool, zapNop, kafka.DedupConfig, 21, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.PromotionService.RecordOrder(ctx, tx, &event); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO commit_guard (id) VALUES (1), (1)`)
		return err
	})
	s.Require().Error(err)

	stored, err := s.PromotionService.Get(s.Ctx, capped.ID)
	s.Require().NoError(err)
	s.Require().Zero(stored.SoldCount)

	var processed int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_events WHERE event_id = 21`).Scan(&processed))
	s.Require().Zero(processed)

	// redelivery counts the order exactly once
	s.Require().NoError(s.Consumer.Handle(s.Ctx, s.orderCreatedMessage(21, line)))
	s.Require().NoError(s.Consumer.Handle(s.Ctx, s.orderCreatedMessage(21, line)))

	stored, err = s.PromotionService.Get(s.Ctx, capped.ID)
	s.Require().NoError(err)
	s.Require().Equal(int32(4), stored.SoldCount)
}
