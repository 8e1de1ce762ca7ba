package tests

import (
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
)

func (s *IntegrationTestSuite) TestPlacement_ActiveOrderingAndPositions() {
	chezFatou := s.seedStructure("Chez Fatou")
	leBaobab := s.seedStructure("Le Baobab")
	traiteur := s.seedStructure("Traiteur Ndiaye")

	homeSecond, err := s.PlacementService.Create(s.Ctx, domain.PlacementInput{
		ElementID: chezFatou, Position: domain.PositionHome, SortOrder: 2, Enabled: true,
		StartsAt: s.at(-time.Hour),
	})
	s.Require().NoError(err)

	everywhere, err := s.PlacementService.Create(s.Ctx, domain.PlacementInput{
		ElementID: leBaobab, Position: domain.PositionEverywhere, SortOrder: 1, Enabled: true,
		StartsAt: s.at(-time.Hour),
	})
	s.Require().NoError(err)
	s.Require().Nil(everywhere.EndsAt)

	_, err = s.PlacementService.Create(s.Ctx, domain.PlacementInput{
		ElementID: traiteur, Position: domain.PositionHome, SortOrder: 1, Enabled: true,
		StartsAt: s.at(time.Hour),
	})
	s.Require().NoError(err)

	expired, err := s.PlacementService.Create(s.Ctx, domain.PlacementInput{
		ElementID: traiteur, Position: domain.PositionListing, SortOrder: 1, Enabled: true,
		StartsAt: s.at(-2 * time.Hour), EndsAt: s.at(-time.Hour),
	})
	s.Require().NoError(err)

	home, err := s.PlacementService.ListActive(s.Ctx, domain.PositionHome)
	s.Require().NoError(err)
	s.Require().Equal([]int64{everywhere.ID, homeSecond.ID}, placementIDs(home))

	listing, err := s.PlacementService.ListActive(s.Ctx, domain.PositionListing)
	s.Require().NoError(err)
	s.Require().Equal([]int64{everywhere.ID}, placementIDs(listing))
	s.Require().NotContains(placementIDs(listing), expired.ID)
}

func (s *IntegrationTestSuite) TestPlacement_CacheIsInvalidatedOnWrite() {
	structureID := s.seedStructure("Chez Awa")

	first, err := s.PlacementService.Create(s.Ctx, domain.PlacementInput{
		ElementID: structureID, Position: domain.PositionHome, Enabled: true, StartsAt: s.at(-time.Minute),
	})
	s.Require().NoError(err)
	s.Require().Equal(int32(1), first.SortOrder)

	home, err := s.PlacementService.ListActive(s.Ctx, domain.PositionHome)
	s.Require().NoError(err)
	s.Require().Len(home, 1)

	exists, err := s.Redis.Exists(s.Ctx, "placements:active:home").Result()
	s.Require().NoError(err)
	s.Require().Equal(int64(1), exists)

	_, err = s.PlacementService.Update(s.Ctx, first.ID, domain.PlacementInput{
		ElementID: structureID, Position: domain.PositionHome, Enabled: false,
	})
	s.Require().NoError(err)

	home, err = s.PlacementService.ListActive(s.Ctx, domain.PositionHome)
	s.Require().NoError(err)
	s.Require().Empty(home)
}

func (s *IntegrationTestSuite) TestPlacement_Rejections() {
	_, err := s.PlacementService.Create(s.Ctx, domain.PlacementInput{ElementID: 999, Position: domain.PositionHome})
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	structureID := s.seedStructure("Chez Khady")
	_, err = s.PlacementService.Create(s.Ctx, domain.PlacementInput{ElementID: structureID})
	s.Require().ErrorIs(err, generalDomain.ErrValidation)

	s.Require().ErrorIs(s.PlacementService.Delete(s.Ctx, 12345), generalDomain.ErrNotFound)

	all, err := s.PlacementRepo.List(s.Ctx, nil)
	s.Require().NoError(err)
	s.Require().Empty(all)
}

func placementIDs(ps []domain.Placement) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
