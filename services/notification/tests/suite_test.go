package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chezmonami/platform/pkg/testsuite"
	"github.com/chezmonami/platform/services/notification/internal/domain"
	"github.com/chezmonami/platform/services/notification/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type outbox struct {
	mu      sync.Mutex
	sent    []*domain.Message
	failing int
}

func (o *outbox) Send(_ context.Context, msg *domain.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.failing > 0 {
		o.failing--
		return errors.New("smtp unavailable")
	}

	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	Outbox              *outbox
	Metrics             *service.Metrics
	Registry            *prometheus.Registry
	NotificationService *service.NotificationService
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.BaseSuite.SetupInfrastructure(testsuite.Infrastructure{
		MigrationsPath: "../migrations",
	})
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.BaseSuite.TruncateTables("processed_events")

	s.Outbox = &outbox{}
	s.Registry = prometheus.NewRegistry()
	s.Metrics = service.NewMetrics(s.Registry)
	s.NotificationService = service.NewNotificationService(
		s.Outbox,
		zap.NewNop(),
		s.DbPool,
		service.WithRetry(3, 10*time.Millisecond),
		service.WithMetrics(s.Metrics),
	)
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite needs docker")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
