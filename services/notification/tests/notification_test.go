package tests

import (
	"strings"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func shipped() generalDomain.OrderStatusChangedEvent {
	return generalDomain.OrderStatusChangedEvent{
		OrderID:        11,
		OrderNumber:    "CMA-20260301-0011",
		PreviousStatus: "preparing",
		NewStatus:      "shipped",
		TrackingNumber: "DHL-998",
		CustomerName:   "Awa",
		CustomerEmail:  "awa@example.com",
	}
}

func (s *IntegrationTestSuite) TestStatusChanged_SentOncePerEvent() {
	s.Require().NoError(s.NotificationService.HandleOrderStatusChanged(s.Ctx, 1, shipped()))
	s.Require().NoError(s.NotificationService.HandleOrderStatusChanged(s.Ctx, 1, shipped()))
	s.Require().Equal(1, s.Outbox.count())

	s.Require().NoError(s.NotificationService.HandleOrderStatusChanged(s.Ctx, 2, shipped()))
	s.Require().Equal(2, s.Outbox.count())
	s.Require().Contains(s.Outbox.sent[0].HTML, "DHL-998")
}

func (s *IntegrationTestSuite) TestStatusChanged_RetriesTransientFailures() {
	s.Outbox.failing = 2

	s.Require().NoError(s.NotificationService.HandleOrderStatusChanged(s.Ctx, 5, shipped()))
	s.Require().Equal(1, s.Outbox.count())
}

func (s *IntegrationTestSuite) TestStatusChanged_FailureAllowsRedelivery() {
	s.Outbox.failing = 3

	s.Require().Error(s.NotificationService.HandleOrderStatusChanged(s.Ctx, 6, shipped()))

	var processed int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_events WHERE event_id = 6`).Scan(&processed)
	s.Require().NoError(err)
	s.Require().Zero(processed)

	s.Require().NoError(s.NotificationService.HandleOrderStatusChanged(s.Ctx, 6, shipped()))
	s.Require().Equal(1, s.Outbox.count())

	expected := `
# HELP notification_emails_total Status emails by outcome: sent, failed or skipped.
# TYPE notification_emails_total counter
notification_emails_total{result="failed",status="shipped"} 1
notification_emails_total{result="sent",status="shipped"} 1
`
	s.Require().NoError(testutil.GatherAndCompare(s.Registry, strings.NewReader(expected), "notification_emails_total"))
}

func (s *IntegrationTestSuite) TestStatusChanged_NoEmailSkipsDedupRow() {
	event := shipped()
	event.CustomerEmail = ""

	s.Require().NoError(s.NotificationService.HandleOrderStatusChanged(s.Ctx, 9, event))
	s.Require().Zero(s.Outbox.count())

	var processed int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_events`).Scan(&processed)
	s.Require().NoError(err)
	s.Require().Zero(processed)
}
