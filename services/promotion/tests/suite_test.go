package tests

import (
	"testing"
	"time"

	"github.com/chezmonami/platform/pkg/testsuite"
	"github.com/chezmonami/platform/services/promotion/internal/repository"
	"github.com/chezmonami/platform/services/promotion/internal/service"
	"github.com/chezmonami/platform/services/promotion/internal/transport/kafka"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	PromotionService service.PromotionService
	PlacementService service.PlacementService
	PlacementRepo    repository.PlacementRepository
	Consumer         *kafka.Consumer

	now time.Time
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.BaseSuite.SetupInfrastructure(testsuite.Infrastructure{
		MigrationsPath: "../migrations",
		Redis:          true,
	})
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.BaseSuite.TruncateTables("promotions", "featured_placements", "processed_events", "products", "structures")
	s.Require().NoError(s.Redis.FlushDB(s.Ctx).Err())

	s.now = time.Now().UTC().Truncate(time.Second)
	clock := service.WithClock(func() time.Time { return s.now })

	logger := zap.NewNop()
	promotionRepo := repository.NewPromotionRepository(s.DbPool, logger)
	catalogRepo := repository.NewCatalogRepository(s.DbPool, logger)
	s.PlacementRepo = repository.NewPlacementRepository(s.DbPool, logger)

	s.PromotionService = service.NewPromotionService(promotionRepo, catalogRepo, logger, clock)
	s.PlacementService = service.NewCachedPlacementService(
		service.NewPlacementService(s.PlacementRepo, catalogRepo, logger, clock),
		s.Redis,
		time.Minute,
		logger,
	)
	s.Consumer = kafka.NewConsumer(s.PromotionService, s.DbPool, "", logger)
}

var zapNop = zap.NewNop()

func (s *IntegrationTestSuite) seedProduct(name, price string) int64 {
	var id int64
	err := s.DbPool.QueryRow(
		s.Ctx,
		`INSERT INTO products (name, price, currency) VALUES ($1, $2, 'XOF') RETURNING id`,
		name,
		decimal.RequireFromString(price),
	).Scan(&id)
	s.Require().NoError(err)

	return id
}

func (s *IntegrationTestSuite) seedStructure(name string) int64 {
	var id int64
	err := s.DbPool.QueryRow(s.Ctx, `INSERT INTO structures (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	s.Require().NoError(err)

	return id
}

func (s *IntegrationTestSuite) at(offset time.Duration) *time.Time {
	t := s.now.Add(offset)
	return &t
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite needs docker")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
