package repository

import (
	"context"
	"errors"
	"fmt"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CatalogRepository reads the products and structures that promotions and
// placements point at.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ElementExists(ctx context.Context, elementType domain.ElementType, id int64) (bool, error)
}

type catalogRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewCatalogRepository(pool *pgxpool.Pool, logger *zap.Logger) CatalogRepository {
	return &catalogRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("catalog_repository"),
	}
}

func (r *catalogRepo) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetProduct")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	query := `
		SELECT id, name, price, currency, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var res domain.Product
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Name, &res.Price, &res.Currency, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get product by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError("products.select", err)
	}

	return &res, nil
}

func (r *catalogRepo) ElementExists(ctx context.Context, elementType domain.ElementType, id int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ElementExists")
	defer span.End()

	span.SetAttributes(
		attribute.String("element_type", string(elementType)),
		attribute.Int64("id", id),
	)

	var table string
	switch elementType {
	case domain.ElementStructure:
		table = "structures"
	case domain.ElementProduct:
		table = "products"
	default:
		return false, generalDomain.Invalid("element_type", fmt.Sprintf("unknown element type %q", elementType))
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to check element", zap.String("table", table), zap.Error(err))

		return false, generalDomain.NewStoreError(table+".exists", err)
	}

	return exists, nil
}
