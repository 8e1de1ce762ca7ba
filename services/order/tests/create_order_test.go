package tests

import (
	"fmt"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestCreateOrder_Success() {
	order := s.chatOrder()

	s.Require().Equal(domain.OrderStatusNew, order.Status)
	s.Require().Regexp(`^CMA-\d{8}-[0-9A-F]{6}$`, order.Number)
	s.Require().True(decimal.RequireFromString("5250.50").Equal(order.TotalAmount))
	s.Require().Equal(int64(1), order.Revision)

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(order.Number, stored.Number)
	s.Require().Len(stored.Items, 2)
	s.Require().Equal("XOF", stored.Items[0].Currency)
	s.Require().True(order.TotalAmount.Equal(stored.TotalAmount))
	s.Require().True(stored.IsInfoIncomplete())

	byNumber, err := s.OrderService.GetByNumber(s.Ctx, order.Number)
	s.Require().NoError(err)
	s.Require().Equal(order.ID, byNumber.ID)

	publishedAtQuery := `
		SELECT published_at
		FROM outbox
		WHERE aggregate_id = $1 AND event_type = $2
	`

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time

		err := s.DbPool.QueryRow(s.Ctx, publishedAtQuery, fmt.Sprintf("%d", order.ID), generalDomain.EventOrderCreated).
			Scan(&publishedAt)
		if err != nil || publishedAt == nil {
			return false
		}

		return true
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestCreateOrder_Invalid() {
	_, err := s.OrderService.CreateOrder(s.Ctx, domain.NewOrder{
		Contact:  domain.Contact{Name: "Awa"},
		Currency: "XOF",
	})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	s.Require().Zero(count)
}

func (s *IntegrationTestSuite) TestCreateOrder_NormalizesItemCurrency() {
	contact := domain.Contact{Name: "Awa Ndiaye", Phone: "+221770000001"}
	line := func(currency string) domain.OrderItem {
		return domain.OrderItem{
			ProductID: 1,
			Name:      "Jus de bissap 1L",
			UnitPrice: decimal.RequireFromString("1500"),
			Quantity:  1,
			Currency:  currency,
		}
	}

	order, err := s.OrderService.CreateOrder(s.Ctx, domain.NewOrder{
		Contact:  contact,
		Items:    []domain.OrderItem{line("xof")},
		Currency: "XOF",
	})
	s.Require().NoError(err)
	s.Require().Equal("XOF", order.Items[0].Currency)

	inferred, err := s.OrderService.CreateOrder(s.Ctx, domain.NewOrder{
		Contact: contact,
		Items:   []domain.OrderItem{line(" eur "), line("")},
	})
	s.Require().NoError(err)
	s.Require().Equal("EUR", inferred.Currency)
	s.Require().Equal("EUR", inferred.Items[0].Currency)
	s.Require().Equal("EUR", inferred.Items[1].Currency)

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal("XOF", stored.Items[0].Currency)
}

func (s *IntegrationTestSuite) TestCreateOrder_SubCentPriceRejected() {
	_, err := s.OrderService.CreateOrder(s.Ctx, domain.NewOrder{
		Contact: domain.Contact{Name: "Awa Ndiaye", Phone: "+221770000001"},
		Items: []domain.OrderItem{{
			ProductID: 1,
			Name:      "Jus de bissap 1L",
			UnitPrice: decimal.RequireFromString("0.333"),
			Quantity:  3,
		}},
		Currency: "XOF",
	})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	s.Require().Zero(count)
}

func (s *IntegrationTestSuite) TestGetOrder_NotFound() {
	_, err := s.OrderService.GetOrder(s.Ctx, 424242)
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	_, err = s.OrderService.GetByNumber(s.Ctx, "CMA-20200101-000000")
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	_, err = s.OrderService.ListHistory(s.Ctx, 424242)
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	s.Require().ErrorIs(s.OrderService.DeleteOrder(s.Ctx, 424242), generalDomain.ErrNotFound)
}

func (s *IntegrationTestSuite) TestListOrders_Filters() {
	incomplete := s.chatOrder()
	complete := s.createOrder(domain.Contact{
		Name:    "Moussa Diop",
		Phone:   "+221770000002",
		Email:   "moussa@example.com",
		Address: "Sicap Liberté 6, Dakar",
	})

	_, err := s.OrderService.UpdateStatus(s.Ctx, complete.ID, domain.StatusUpdate{Status: "confirmed"})
	s.Require().NoError(err)

	all, err := s.OrderService.ListOrders(s.Ctx, domain.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)

	yes := true
	onlyIncomplete, err := s.OrderService.ListOrders(s.Ctx, domain.ListFilter{Incomplete: &yes})
	s.Require().NoError(err)
	s.Require().Len(onlyIncomplete, 1)
	s.Require().Equal(incomplete.ID, onlyIncomplete[0].ID)
	s.Require().Len(onlyIncomplete[0].Items, 2)

	confirmed := domain.OrderStatusConfirmed
	byStatus, err := s.OrderService.ListOrders(s.Ctx, domain.ListFilter{Status: &confirmed})
	s.Require().NoError(err)
	s.Require().Len(byStatus, 1)
	s.Require().Equal(complete.ID, byStatus[0].ID)

	page, err := s.OrderService.ListOrders(s.Ctx, domain.ListFilter{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
}

func (s *IntegrationTestSuite) TestDeleteOrder_RemovesHistory() {
	order := s.chatOrder()

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "cancelled", Comment: "duplicate"})
	s.Require().NoError(err)

	s.Require().NoError(s.OrderService.DeleteOrder(s.Ctx, order.ID))
	s.Require().Zero(s.historyCount(order.ID))

	_, err = s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)
}
