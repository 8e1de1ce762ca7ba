package tests

import (
	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestCart_CheckoutCreatesOrder() {
	session := "sess-checkout"

	_, err := s.CartService.AddItem(s.Ctx, session, domain.CartItem{
		ProductID: 10,
		Name:      "Yassa poulet",
		UnitPrice: decimal.RequireFromString("3500"),
		Quantity:  1,
		Currency:  "xof",
	})
	s.Require().NoError(err)

	cart, err := s.CartService.AddItem(s.Ctx, session, domain.CartItem{
		ProductID: 10,
		Name:      "Yassa poulet",
		UnitPrice: decimal.RequireFromString("3500"),
		Quantity:  2,
		Currency:  "XOF",
	})
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(int32(3), cart.Items[0].Quantity)

	ttl, err := s.Redis.TTL(s.Ctx, "cart:"+session).Result()
	s.Require().NoError(err)
	s.Require().Positive(ttl)

	order, err := s.CartService.Checkout(s.Ctx, session, domain.Contact{Name: "Fatou", Phone: "+221770000003"})
	s.Require().NoError(err)
	s.Require().Equal("XOF", order.Currency)
	s.Require().True(decimal.NewFromInt(10500).Equal(order.TotalAmount))

	cart, err = s.CartService.Get(s.Ctx, session)
	s.Require().NoError(err)
	s.Require().True(cart.IsEmpty())

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Items, 1)
	s.Require().Equal("Yassa poulet", stored.Items[0].Name)
}

func (s *IntegrationTestSuite) TestCart_SessionsAreIsolated() {
	item := domain.CartItem{
		ProductID: 11,
		Name:      "Dibi",
		UnitPrice: decimal.RequireFromString("2000"),
		Quantity:  1,
		Currency:  "XOF",
	}

	_, err := s.CartService.AddItem(s.Ctx, "sess-a", item)
	s.Require().NoError(err)

	other, err := s.CartService.Get(s.Ctx, "sess-b")
	s.Require().NoError(err)
	s.Require().True(other.IsEmpty())

	s.Require().NoError(s.CartService.Clear(s.Ctx, "sess-a"))

	cleared, err := s.CartService.Get(s.Ctx, "sess-a")
	s.Require().NoError(err)
	s.Require().True(cleared.IsEmpty())
}

func (s *IntegrationTestSuite) TestCart_EmptyCheckoutRejected() {
	_, err := s.CartService.Checkout(s.Ctx, "sess-empty", domain.Contact{Name: "Fatou", Phone: "77"})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)
}
