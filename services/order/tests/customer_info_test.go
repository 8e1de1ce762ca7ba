package tests

import (
	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/services/order/internal/domain"
)

func (s *IntegrationTestSuite) TestCompleteCustomerInfo_Success() {
	order := s.chatOrder()
	s.Require().True(order.IsInfoIncomplete())

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.StatusUpdate{Status: "confirmed"})
	s.Require().NoError(err)
	historyBefore := s.historyCount(order.ID)

	updated, err := s.OrderService.CompleteCustomerInfo(s.Ctx, order.ID, domain.Contact{
		Name:    " Awa Ndiaye ",
		Phone:   "+221770000001",
		Email:   "awa@example.com",
		Address: "Plateau, Dakar",
		Message: "Sonner deux fois",
	}, nil)
	s.Require().NoError(err)
	s.Require().False(updated.IsInfoIncomplete())
	s.Require().Equal("Awa Ndiaye", updated.Customer.Name)

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusConfirmed, stored.Status)
	s.Require().Equal("awa@example.com", stored.Customer.Email)
	s.Require().Equal("Sonner deux fois", stored.Customer.Message)
	s.Require().Equal(int64(3), stored.Revision)
	s.Require().Equal(historyBefore, s.historyCount(order.ID))

	var events int
	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type = $1`,
		generalDomain.EventOrderCustomerInfoCompleted,
	).Scan(&events)
	s.Require().NoError(err)
	s.Require().Equal(1, events)
}

func (s *IntegrationTestSuite) TestCompleteCustomerInfo_OverwritesWholeBlock() {
	order := s.createOrder(domain.Contact{
		Name:    "Moussa",
		Phone:   "+221770000002",
		Email:   "moussa@example.com",
		Address: "Mermoz",
	})
	s.Require().False(order.IsInfoIncomplete())

	updated, err := s.OrderService.CompleteCustomerInfo(s.Ctx, order.ID, domain.Contact{
		Name:  "Moussa Diop",
		Phone: "+221770000002",
	}, nil)
	s.Require().NoError(err)
	s.Require().True(updated.IsInfoIncomplete())
	s.Require().Empty(updated.Customer.Email)
}

func (s *IntegrationTestSuite) TestCompleteCustomerInfo_Errors() {
	order := s.chatOrder()

	_, err := s.OrderService.CompleteCustomerInfo(s.Ctx, order.ID, domain.Contact{Name: "Awa"}, nil)
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	var ve *generalDomain.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Require().Contains(ve.Fields, "phone")

	_, err = s.OrderService.CompleteCustomerInfo(s.Ctx, 555555, domain.Contact{Name: "Awa", Phone: "77"}, nil)
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(1), stored.Revision)
}
