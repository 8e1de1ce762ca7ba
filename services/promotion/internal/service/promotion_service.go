package service

import (
	"context"
	"strings"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
	"github.com/chezmonami/platform/services/promotion/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PromotionService interface {
	Create(ctx context.Context, in domain.PromotionInput) (*domain.Promotion, error)
	Update(ctx context.Context, id int64, in domain.PromotionInput) (*domain.Promotion, error)
	Get(ctx context.Context, id int64) (*domain.Promotion, error)
	List(ctx context.Context, filter domain.PromotionFilter) ([]*domain.Promotion, error)
	ListActive(ctx context.Context, productID *int64) ([]*domain.Promotion, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (*domain.Promotion, error)
	Delete(ctx context.Context, id int64) error
	RecordOrder(ctx context.Context, tx pgx.Tx, event *generalDomain.OrderCreatedEvent) error
}

type promotionService struct {
	repo    repository.PromotionRepository
	catalog repository.CatalogRepository
	logger  *zap.Logger
	tracer  trace.Tracer
	opts    options
}

func NewPromotionService(
	repo repository.PromotionRepository,
	catalog repository.CatalogRepository,
	logger *zap.Logger,
	opts ...Option,
) PromotionService {
	return &promotionService{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		tracer:  otel.Tracer("promotion_service"),
		opts:    newOptions(opts),
	}
}

func (s *promotionService) Create(ctx context.Context, in domain.PromotionInput) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.Create")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", in.ProductID))

	original, currency, err := s.resolvePrice(ctx, in, nil)
	if err != nil {
		return nil, err
	}

	promotion, err := in.Build(original, currency)
	if err != nil {
		mylogger.Info(ctx, s.logger, "Promotion rejected", zap.Error(err))
		return nil, err
	}

	if err := s.repo.Create(ctx, promotion); err != nil {
		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Promotion created",
		zap.Int64("promotion_id", promotion.ID),
		zap.Int64("product_id", promotion.ProductID),
		zap.String("sale_price", promotion.SalePrice.String()),
	)

	return promotion, nil
}

// Update replaces the administrator fields and re-derives the pricing. The
// original price snapshot is kept unless the product changes or a new price
// is given.
func (s *promotionService) Update(ctx context.Context, id int64, in domain.PromotionInput) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("promotion_id", id))

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, repository.ErrPromotionNotFound, "promotion", id)
	}

	original, currency, err := s.resolvePrice(ctx, in, current)
	if err != nil {
		return nil, err
	}

	promotion, err := in.Build(original, currency)
	if err != nil {
		return nil, err
	}
	promotion.ID = id

	if err := s.repo.Update(ctx, promotion); err != nil {
		return nil, notFoundAs(err, repository.ErrPromotionNotFound, "promotion", id)
	}

	return promotion, nil
}

func (s *promotionService) resolvePrice(
	ctx context.Context,
	in domain.PromotionInput,
	current *domain.Promotion,
) (decimal.Decimal, string, error) {
	if in.ProductID <= 0 {
		if in.OriginalPrice != nil {
			return *in.OriginalPrice, s.opts.defaultCurrency, nil
		}
		return decimal.Zero, s.opts.defaultCurrency, nil
	}

	if current != nil && current.ProductID == in.ProductID {
		if in.OriginalPrice != nil {
			return *in.OriginalPrice, current.Currency, nil
		}
		return current.OriginalPrice, current.Currency, nil
	}

	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return decimal.Zero, "", notFoundAs(err, repository.ErrProductNotFound, "product", in.ProductID)
	}

	currency := strings.ToUpper(strings.TrimSpace(product.Currency))
	if currency == "" {
		currency = s.opts.defaultCurrency
	}

	if in.OriginalPrice != nil {
		return *in.OriginalPrice, currency, nil
	}

	return product.Price, currency, nil
}

func (s *promotionService) Get(ctx context.Context, id int64) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.Get")
	defer span.End()

	promotion, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, repository.ErrPromotionNotFound, "promotion", id)
	}

	return promotion, nil
}

func (s *promotionService) List(ctx context.Context, filter domain.PromotionFilter) ([]*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.List")
	defer span.End()

	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	return s.repo.List(ctx, filter)
}

// ListActive returns the promotions a shopper can buy at right now.
func (s *promotionService) ListActive(ctx context.Context, productID *int64) ([]*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.ListActive")
	defer span.End()

	now := s.opts.now().UTC()
	candidates, err := s.repo.List(ctx, domain.PromotionFilter{
		ProductID: productID,
		ActiveAt:  &now,
		Limit:     maxListLimit,
	})
	if err != nil {
		return nil, err
	}

	active := make([]*domain.Promotion, 0, len(candidates))
	for _, p := range candidates {
		if p.Available(now) {
			active = append(active, p)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(active)))

	return active, nil
}

func (s *promotionService) SetEnabled(ctx context.Context, id int64, enabled bool) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.SetEnabled")
	defer span.End()

	promotion, err := s.repo.SetEnabled(ctx, id, enabled)
	if err != nil {
		return nil, notFoundAs(err, repository.ErrPromotionNotFound, "promotion", id)
	}

	mylogger.Info(ctx, s.logger, "Promotion toggled", zap.Int64("promotion_id", id), zap.Bool("enabled", enabled))

	return promotion, nil
}

func (s *promotionService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "PromotionService.Delete")
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundAs(err, repository.ErrPromotionNotFound, "promotion", id)
	}

	return nil
}

// RecordOrder counts the ordered quantities against live promotions with a
// stock cap. It writes through tx only, so the lines of one order commit
// together with whatever the caller records in the same transaction.
func (s *promotionService) RecordOrder(ctx context.Context, tx pgx.Tx, event *generalDomain.OrderCreatedEvent) error {
	ctx, span := s.tracer.Start(ctx, "PromotionService.RecordOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", event.OrderID),
		attribute.Int("items_count", len(event.Items)),
	)

	at := event.CreatedAt
	if at.IsZero() {
		at = s.opts.now()
	}

	var touched int64
	for _, line := range event.Items {
		if line.Quantity <= 0 {
			continue
		}

		n, err := s.repo.RecordSales(ctx, tx, line.ProductID, line.Quantity, at)
		if err != nil {
			span.RecordError(err)
			mylogger.Warn(ctx, s.logger, "Failed to record promotional sales", zap.Int64("order_id", event.OrderID), zap.Error(err))
			return err
		}
		touched += n
	}

	mylogger.Debug(
		ctx,
		s.logger,
		"Promotional sales recorded",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("promotions_touched", touched),
	)

	return nil
}
