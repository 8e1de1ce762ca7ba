package tests

import (
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestPromotion_CreatePersistsDerivedPricing() {
	productID := s.seedProduct("Thiéboudienne", "1000")

	created, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID,
		Kind:      domain.KindPercentage,
		Value:     decimal.NewFromInt(20),
		StartsAt:  s.at(-time.Hour),
		EndsAt:    s.at(24 * time.Hour),
		Enabled:   true,
	})
	s.Require().NoError(err)
	s.Require().NotZero(created.ID)

	stored, err := s.PromotionService.Get(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Require().True(decimal.NewFromInt(1000).Equal(stored.OriginalPrice))
	s.Require().True(decimal.NewFromInt(800).Equal(stored.SalePrice))
	s.Require().True(decimal.NewFromInt(200).Equal(stored.Savings))
	s.Require().Equal("XOF", stored.Currency)
	s.Require().Equal(int64(20), stored.PercentOff())
	s.Require().True(stored.IsActive(s.now))
}

func (s *IntegrationTestSuite) TestPromotion_FixedAmountClampsAtZero() {
	productID := s.seedProduct("Dibi", "1000")

	created, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID,
		Kind:      domain.KindFixedAmount,
		Value:     decimal.NewFromInt(1500),
		StartsAt:  s.at(0),
		EndsAt:    s.at(time.Hour),
		Enabled:   true,
	})
	s.Require().NoError(err)
	s.Require().True(decimal.Zero.Equal(created.SalePrice))
	s.Require().True(decimal.NewFromInt(1000).Equal(created.Savings))
}

func (s *IntegrationTestSuite) TestPromotion_RejectedInputWritesNothing() {
	productID := s.seedProduct("Mafé", "1000")

	_, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID,
		Kind:      domain.KindFixedAmount,
		Value:     decimal.Zero,
		StartsAt:  s.at(0),
		EndsAt:    s.at(time.Hour),
	})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	_, err = s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID,
		Kind:      domain.KindPercentage,
		Value:     decimal.NewFromInt(120),
		StartsAt:  s.at(0),
		EndsAt:    s.at(time.Hour),
	})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	_, err = s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID + 100,
		Kind:      domain.KindPercentage,
		Value:     decimal.NewFromInt(10),
		StartsAt:  s.at(0),
		EndsAt:    s.at(time.Hour),
	})
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM promotions`).Scan(&count))
	s.Require().Zero(count)
}

func (s *IntegrationTestSuite) TestPromotion_ActiveListingHonoursWindowAndToggle() {
	productID := s.seedProduct("Yassa", "3500")

	live, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID, Kind: domain.KindPercentage, Value: decimal.NewFromInt(10),
		StartsAt: s.at(-time.Hour), EndsAt: s.at(time.Hour), Enabled: true,
	})
	s.Require().NoError(err)

	_, err = s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID, Kind: domain.KindPercentage, Value: decimal.NewFromInt(30),
		StartsAt: s.at(time.Hour), EndsAt: s.at(2 * time.Hour), Enabled: true,
	})
	s.Require().NoError(err)

	boundary, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID, Kind: domain.KindFixedAmount, Value: decimal.NewFromInt(500),
		StartsAt: s.at(-time.Hour), EndsAt: s.at(0), Enabled: true,
	})
	s.Require().NoError(err)

	active, err := s.PromotionService.ListActive(s.Ctx, &productID)
	s.Require().NoError(err)
	s.Require().ElementsMatch([]int64{live.ID, boundary.ID}, ids(active))

	_, err = s.PromotionService.SetEnabled(s.Ctx, live.ID, false)
	s.Require().NoError(err)

	active, err = s.PromotionService.ListActive(s.Ctx, nil)
	s.Require().NoError(err)
	s.Require().Equal([]int64{boundary.ID}, ids(active))

	all, err := s.PromotionService.List(s.Ctx, domain.PromotionFilter{ProductID: &productID})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
}

func (s *IntegrationTestSuite) TestPromotion_UpdateAndDelete() {
	productID := s.seedProduct("Pastels", "2000")

	created, err := s.PromotionService.Create(s.Ctx, domain.PromotionInput{
		ProductID: productID, Kind: domain.KindPercentage, Value: decimal.NewFromInt(10),
		StartsAt: s.at(0), EndsAt: s.at(time.Hour), Enabled: true,
	})
	s.Require().NoError(err)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET price = 2500 WHERE id = $1`, productID)
	s.Require().NoError(err)

	updated, err := s.PromotionService.Update(s.Ctx, created.ID, domain.PromotionInput{
		ProductID: productID, Kind: domain.KindFixedAmount, Value: decimal.NewFromInt(300),
		StartsAt: s.at(0), EndsAt: s.at(2 * time.Hour), Enabled: true,
	})
	s.Require().NoError(err)
	s.Require().True(decimal.NewFromInt(2000).Equal(updated.OriginalPrice))
	s.Require().True(decimal.NewFromInt(1700).Equal(updated.SalePrice))
	s.Require().True(updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

	s.Require().NoError(s.PromotionService.Delete(s.Ctx, created.ID))

	_, err = s.PromotionService.Get(s.Ctx, created.ID)
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)
}

func ids(ps []*domain.Promotion) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
