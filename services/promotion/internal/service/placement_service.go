package service

import (
	"context"
	"fmt"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
	"github.com/chezmonami/platform/services/promotion/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PlacementService interface {
	Create(ctx context.Context, in domain.PlacementInput) (*domain.Placement, error)
	Update(ctx context.Context, id int64, in domain.PlacementInput) (*domain.Placement, error)
	Get(ctx context.Context, id int64) (*domain.Placement, error)
	List(ctx context.Context, position *domain.Position) ([]domain.Placement, error)
	ListActive(ctx context.Context, position domain.Position) ([]domain.Placement, error)
	Delete(ctx context.Context, id int64) error
}

type placementService struct {
	repo    repository.PlacementRepository
	catalog repository.CatalogRepository
	logger  *zap.Logger
	tracer  trace.Tracer
	opts    options
}

func NewPlacementService(
	repo repository.PlacementRepository,
	catalog repository.CatalogRepository,
	logger *zap.Logger,
	opts ...Option,
) PlacementService {
	return &placementService{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		tracer:  otel.Tracer("placement_service"),
		opts:    newOptions(opts),
	}
}

func (s *placementService) prepare(ctx context.Context, in domain.PlacementInput) (*domain.Placement, error) {
	in.Normalize(s.opts.now())
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.catalog.ElementExists(ctx, in.ElementType, in.ElementID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, generalDomain.NewNotFound(string(in.ElementType), in.ElementID)
	}

	return in.Build(), nil
}

func (s *placementService) Create(ctx context.Context, in domain.PlacementInput) (*domain.Placement, error) {
	ctx, span := s.tracer.Start(ctx, "PlacementService.Create")
	defer span.End()

	placement, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, placement); err != nil {
		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Placement created",
		zap.Int64("placement_id", placement.ID),
		zap.String("position", string(placement.Position)),
		zap.String("element", fmt.Sprintf("%s:%d", placement.ElementType, placement.ElementID)),
	)

	return placement, nil
}

func (s *placementService) Update(ctx context.Context, id int64, in domain.PlacementInput) (*domain.Placement, error) {
	ctx, span := s.tracer.Start(ctx, "PlacementService.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("placement_id", id))

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, repository.ErrPlacementNotFound, "placement", id)
	}

	if in.StartsAt == nil {
		start := current.StartsAt
		in.StartsAt = &start
	}

	placement, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	placement.ID = id

	if err := s.repo.Update(ctx, placement); err != nil {
		return nil, notFoundAs(err, repository.ErrPlacementNotFound, "placement", id)
	}

	return placement, nil
}

func (s *placementService) Get(ctx context.Context, id int64) (*domain.Placement, error) {
	ctx, span := s.tracer.Start(ctx, "PlacementService.Get")
	defer span.End()

	placement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, repository.ErrPlacementNotFound, "placement", id)
	}

	return placement, nil
}

func (s *placementService) List(ctx context.Context, position *domain.Position) ([]domain.Placement, error) {
	ctx, span := s.tracer.Start(ctx, "PlacementService.List")
	defer span.End()

	return s.repo.List(ctx, position)
}

// ListActive returns what the storefront shows at a position, in display
// order. An empty position returns every active placement.
func (s *placementService) ListActive(ctx context.Context, position domain.Position) ([]domain.Placement, error) {
	ctx, span := s.tracer.Start(ctx, "PlacementService.ListActive")
	defer span.End()

	span.SetAttributes(attribute.String("position", string(position)))

	if position != "" && !position.Valid() {
		return nil, generalDomain.Invalid("position", fmt.Sprintf("unknown position %q", position))
	}

	now := s.opts.now().UTC()
	candidates, err := s.repo.ListActive(ctx, position, now)
	if err != nil {
		return nil, err
	}

	return domain.ActivePlacements(candidates, position, now), nil
}

func (s *placementService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "PlacementService.Delete")
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundAs(err, repository.ErrPlacementNotFound, "placement", id)
	}

	return nil
}
