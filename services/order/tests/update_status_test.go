package tests

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/chezmonami/platform/services/order/internal/service"
)

func strPtr(v string) *string { return &v }

func int64Ptr(v int64) *int64 { return &v }

func (s *IntegrationTestSuite) TestUpdateStatus_RecordsEveryTransition() {
	order := s.chatOrder()

	updated, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "confirmed"})
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusConfirmed, updated.Status)
	s.Require().Equal(int64(2), updated.Revision)
	s.Require().Nil(updated.AdminNote)

	_, err = s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{
		Status:         "shipped",
		Comment:        "Livré par Yango",
		TrackingNumber: strPtr("YG-0042"),
	})
	s.Require().NoError(err)

	history, err := s.OrderService.ListHistory(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)

	s.Require().Equal(domain.OrderStatusNew, history[0].PreviousStatus)
	s.Require().Equal(domain.OrderStatusConfirmed, history[0].NewStatus)
	s.Require().Nil(history[0].Comment)

	s.Require().Equal(domain.OrderStatusConfirmed, history[1].PreviousStatus)
	s.Require().Equal(domain.OrderStatusShipped, history[1].NewStatus)
	s.Require().Equal("Livré par Yango", *history[1].Comment)
	s.Require().False(history[1].CreatedAt.Before(history[0].CreatedAt))

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal("YG-0042", *stored.TrackingNumber)
	s.Require().Equal("Livré par Yango", *stored.AdminNote)
	s.Require().Equal(int64(3), stored.Revision)
}

func (s *IntegrationTestSuite) TestUpdateStatus_CommentOnlyHistory() {
	svc := s.newOrderService(service.WithHistoryMode(domain.HistoryCommentOnly))
	order := s.chatOrder()

	_, err := svc.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "confirmed"})
	s.Require().NoError(err)
	s.Require().Zero(s.historyCount(order.ID))

	_, err = svc.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "preparing", Comment: "En cuisine"})
	s.Require().NoError(err)
	s.Require().Equal(1, s.historyCount(order.ID))

	history, err := svc.ListHistory(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusConfirmed, history[0].PreviousStatus)
	s.Require().Equal(domain.OrderStatusPreparing, history[0].NewStatus)
}

func (s *IntegrationTestSuite) TestUpdateStatus_SameStatusTwice() {
	order := s.chatOrder()

	for _, comment := range []string{"appel client", "relance"} {
		_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "confirmed", Comment: comment})
		s.Require().NoError(err)
	}

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusConfirmed, stored.Status)
	s.Require().Equal("relance", *stored.AdminNote)

	history, err := s.OrderService.ListHistory(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Require().NotEqual(history[0].ID, history[1].ID)
	s.Require().Equal(domain.OrderStatusConfirmed, history[1].PreviousStatus)
	s.Require().Equal(domain.OrderStatusConfirmed, history[1].NewStatus)
}

func (s *IntegrationTestSuite) TestUpdateStatus_KeepsTrackingNumber() {
	order := s.chatOrder()

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "shipped", TrackingNumber: strPtr("TRK-1")})
	s.Require().NoError(err)

	updated, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "delivered"})
	s.Require().NoError(err)
	s.Require().NotNil(updated.TrackingNumber)
	s.Require().Equal("TRK-1", *updated.TrackingNumber)
}

func (s *IntegrationTestSuite) TestUpdateStatus_Errors() {
	order := s.chatOrder()

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "paid"})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	_, err = s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	_, err = s.OrderService.UpdateStatus(s.Ctx, 987654, domain.StatusUpdate{Status: "confirmed"})
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusNew, stored.Status)
	s.Require().Equal(int64(1), stored.Revision)
	s.Require().Zero(s.historyCount(order.ID))
}

func (s *IntegrationTestSuite) TestUpdateStatus_StrictPolicy() {
	svc := s.newOrderService(service.WithTransitionPolicy(domain.StrictPolicy()))
	order := s.chatOrder()

	_, err := svc.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "cancelled"})
	s.Require().NoError(err)

	_, err = svc.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "confirmed"})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	stored, err := svc.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusCancelled, stored.Status)
	s.Require().Equal(1, s.historyCount(order.ID))
}

func (s *IntegrationTestSuite) TestUpdateStatus_RevisionConflict() {
	order := s.chatOrder()

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{
		Status:           "confirmed",
		ExpectedRevision: int64Ptr(order.Revision),
	})
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{
		Status:           "cancelled",
		ExpectedRevision: int64Ptr(order.Revision),
	})
	s.Require().ErrorIs(err, generalDomain.ErrConflict)

	_, err = s.OrderService.CompleteCustomerInfo(s.Ctx, order.ID, domain.Contact{Name: "Awa", Phone: "77"}, int64Ptr(order.Revision))
	s.Require().ErrorIs(err, generalDomain.ErrConflict)

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusConfirmed, stored.Status)
}

func (s *IntegrationTestSuite) TestUpdateStatus_ConcurrentWritersSerialize() {
	order := s.chatOrder()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{
				Status:  "preparing",
				Comment: fmt.Sprintf("writer %d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(1+writers), stored.Revision)
	s.Require().Equal(writers, s.historyCount(order.ID))
}

func (s *IntegrationTestSuite) TestUpdateStatus_PublishesEvent() {
	order := s.chatOrder()

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "shipped", TrackingNumber: strPtr("TRK-9")})
	s.Require().NoError(err)

	var raw []byte
	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT payload FROM outbox WHERE aggregate_id = $1 AND event_type = $2`,
		fmt.Sprintf("%d", order.ID),
		generalDomain.EventOrderStatusChanged,
	).Scan(&raw)
	s.Require().NoError(err)

	var envelope struct {
		Event   string                                `json:"event"`
		Payload generalDomain.OrderStatusChangedEvent `json:"payload"`
	}
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Require().Equal(generalDomain.EventOrderStatusChanged, envelope.Event)
	s.Require().Equal("new", envelope.Payload.PreviousStatus)
	s.Require().Equal("shipped", envelope.Payload.NewStatus)
	s.Require().Equal("TRK-9", envelope.Payload.TrackingNumber)
	s.Require().Equal(order.Number, envelope.Payload.OrderNumber)

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time
		err := s.DbPool.QueryRow(
			s.Ctx,
			`SELECT published_at FROM outbox WHERE aggregate_id = $1 AND event_type = $2`,
			fmt.Sprintf("%d", order.ID),
			generalDomain.EventOrderStatusChanged,
		).Scan(&publishedAt)
		return err == nil && publishedAt != nil
	}, 10*time.Second, 100*time.Millisecond)
}
