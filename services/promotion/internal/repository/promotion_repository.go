package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type PromotionRepository interface {
	Create(ctx context.Context, promotion *domain.Promotion) error
	Update(ctx context.Context, promotion *domain.Promotion) error
	GetByID(ctx context.Context, id int64) (*domain.Promotion, error)
	List(ctx context.Context, filter domain.PromotionFilter) ([]*domain.Promotion, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (*domain.Promotion, error)
	Delete(ctx context.Context, id int64) error
	RecordSales(ctx context.Context, tx pgx.Tx, productID int64, quantity int32, at time.Time) (int64, error)
}

type promotionRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewPromotionRepository(pool *pgxpool.Pool, logger *zap.Logger) PromotionRepository {
	return &promotionRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("promotion_repository"),
	}
}

const promotionColumns = `
	id, product_id, kind, value, original_price, sale_price, savings, currency,
	starts_at, ends_at, stock_cap, sold_count, enabled, created_at, updated_at
`

func scanPromotion(row pgx.Row) (*domain.Promotion, error) {
	var p domain.Promotion
	if err := row.Scan(
		&p.ID,
		&p.ProductID,
		&p.Kind,
		&p.Value,
		&p.OriginalPrice,
		&p.SalePrice,
		&p.Savings,
		&p.Currency,
		&p.StartsAt,
		&p.EndsAt,
		&p.StockCap,
		&p.SoldCount,
		&p.Enabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promotionRepo) Create(ctx context.Context, promotion *domain.Promotion) error {
	ctx, span := r.tracer.Start(ctx, "PromotionRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", promotion.ProductID),
		attribute.String("kind", string(promotion.Kind)),
	)

	query := `
		INSERT INTO promotions (
			product_id, kind, value, original_price, sale_price, savings, currency,
			starts_at, ends_at, stock_cap, enabled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, sold_count, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		promotion.ProductID,
		string(promotion.Kind),
		promotion.Value,
		promotion.OriginalPrice,
		promotion.SalePrice,
		promotion.Savings,
		promotion.Currency,
		promotion.StartsAt,
		promotion.EndsAt,
		promotion.StockCap,
		promotion.Enabled,
	).Scan(
		&promotion.ID,
		&promotion.SoldCount,
		&promotion.CreatedAt,
		&promotion.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating promotion",
			zap.Int64("product_id", promotion.ProductID),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("promotions.insert", err)
	}

	return nil
}

// Update rewrites every administrator field. sold_count is owned by
// RecordSales and is never overwritten here.
func (r *promotionRepo) Update(ctx context.Context, promotion *domain.Promotion) error {
	ctx, span := r.tracer.Start(ctx, "PromotionRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", promotion.ID))

	query := `
		UPDATE promotions
		SET product_id = $2,
			kind = $3,
			value = $4,
			original_price = $5,
			sale_price = $6,
			savings = $7,
			currency = $8,
			starts_at = $9,
			ends_at = $10,
			stock_cap = $11,
			enabled = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING sold_count, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		promotion.ID,
		promotion.ProductID,
		string(promotion.Kind),
		promotion.Value,
		promotion.OriginalPrice,
		promotion.SalePrice,
		promotion.Savings,
		promotion.Currency,
		promotion.StartsAt,
		promotion.EndsAt,
		promotion.StockCap,
		promotion.Enabled,
	).Scan(
		&promotion.SoldCount,
		&promotion.CreatedAt,
		&promotion.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPromotionNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update promotion",
			zap.Int64("id", promotion.ID),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("promotions.update", err)
	}

	return nil
}

func (r *promotionRepo) GetByID(ctx context.Context, id int64) (*domain.Promotion, error) {
	ctx, span := r.tracer.Start(ctx, "PromotionRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	query := fmt.Sprintf(`SELECT %s FROM promotions WHERE id = $1`, promotionColumns)

	promotion, err := scanPromotion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError("promotions.select", err)
	}

	return promotion, nil
}

// List returns promotions newest window first. With ActiveAt set only
// enabled, in-window promotions that still have promotional stock remain.
func (r *promotionRepo) List(ctx context.Context, filter domain.PromotionFilter) ([]*domain.Promotion, error) {
	ctx, span := r.tracer.Start(ctx, "PromotionRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", filter.Limit),
		attribute.Int("offset", filter.Offset),
	)

	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE ($1::bigint IS NULL OR product_id = $1::bigint)
		  AND (
			$2::timestamptz IS NULL
			OR (
				enabled
				AND starts_at <= $2::timestamptz
				AND ends_at >= $2::timestamptz
				AND (stock_cap IS NULL OR sold_count < stock_cap)
			)
		  )
		ORDER BY starts_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, promotionColumns)

	rows, err := r.pool.Query(ctx, query, filter.ProductID, filter.ActiveAt, filter.Limit, filter.Offset)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting promotions",
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError("promotions.list", err)
	}
	defer rows.Close()

	promotions := []*domain.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan rows",
				zap.Error(err),
			)

			return nil, generalDomain.NewStoreError("promotions.scan", err)
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, generalDomain.NewStoreError("promotions.rows", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(promotions)))

	return promotions, nil
}

func (r *promotionRepo) SetEnabled(ctx context.Context, id int64, enabled bool) (*domain.Promotion, error) {
	ctx, span := r.tracer.Start(ctx, "PromotionRepository.SetEnabled")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Bool("enabled", enabled),
	)

	query := fmt.Sprintf(`
		UPDATE promotions
		SET enabled = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, promotionColumns)

	promotion, err := scanPromotion(r.pool.QueryRow(ctx, query, id, enabled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}

		span.RecordError(err)
		mylogger.Warn(ctx, r.logger, "Failed to toggle promotion", zap.Int64("id", id), zap.Error(err))

		return nil, generalDomain.NewStoreError("promotions.toggle", err)
	}

	return promotion, nil
}

func (r *promotionRepo) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "PromotionRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting promotion by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("promotions.delete", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}

	return nil
}

// RecordSales counts quantity units against every promotion on the product
// that was live at `at` and still had promotional stock. sold_count never
// passes stock_cap.
func (r *promotionRepo) RecordSales(ctx context.Context, tx pgx.Tx, productID int64, quantity int32, at time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "PromotionRepository.RecordSales")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE promotions
		SET sold_count = LEAST(sold_count + $2, COALESCE(stock_cap, sold_count + $2)),
			updated_at = NOW()
		WHERE product_id = $1
		  AND enabled
		  AND starts_at <= $3
		  AND ends_at >= $3
		  AND (stock_cap IS NULL OR sold_count < stock_cap)
	`

	commandTag, err := tx.Exec(ctx, query, productID, quantity, at)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error recording promotional sales",
			zap.Int64("product_id", productID),
			zap.Int32("quantity", quantity),
			zap.Error(err),
		)

		return 0, generalDomain.NewStoreError("promotions.record_sales", err)
	}

	return commandTag.RowsAffected(), nil
}
