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

type PlacementRepository interface {
	Create(ctx context.Context, placement *domain.Placement) error
	Update(ctx context.Context, placement *domain.Placement) error
	GetByID(ctx context.Context, id int64) (*domain.Placement, error)
	List(ctx context.Context, position *domain.Position) ([]domain.Placement, error)
	ListActive(ctx context.Context, position domain.Position, now time.Time) ([]domain.Placement, error)
	Delete(ctx context.Context, id int64) error
}

type placementRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewPlacementRepository(pool *pgxpool.Pool, logger *zap.Logger) PlacementRepository {
	return &placementRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("placement_repository"),
	}
}

const placementColumns = `
	id, element_id, element_type, position, sort_order, title,
	starts_at, ends_at, enabled, created_at, updated_at
`

func scanPlacement(row pgx.Row) (domain.Placement, error) {
	var p domain.Placement
	err := row.Scan(
		&p.ID,
		&p.ElementID,
		&p.ElementType,
		&p.Position,
		&p.SortOrder,
		&p.Title,
		&p.StartsAt,
		&p.EndsAt,
		&p.Enabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *placementRepo) Create(ctx context.Context, placement *domain.Placement) error {
	ctx, span := r.tracer.Start(ctx, "PlacementRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("element_id", placement.ElementID),
		attribute.String("position", string(placement.Position)),
	)

	query := `
		INSERT INTO featured_placements (
			element_id, element_type, position, sort_order, title, starts_at, ends_at, enabled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		placement.ElementID,
		string(placement.ElementType),
		string(placement.Position),
		placement.SortOrder,
		placement.Title,
		placement.StartsAt,
		placement.EndsAt,
		placement.Enabled,
	).Scan(&placement.ID, &placement.CreatedAt, &placement.UpdatedAt)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating placement",
			zap.Int64("element_id", placement.ElementID),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("featured_placements.insert", err)
	}

	return nil
}

func (r *placementRepo) Update(ctx context.Context, placement *domain.Placement) error {
	ctx, span := r.tracer.Start(ctx, "PlacementRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", placement.ID))

	query := `
		UPDATE featured_placements
		SET element_id = $2,
			element_type = $3,
			position = $4,
			sort_order = $5,
			title = $6,
			starts_at = $7,
			ends_at = $8,
			enabled = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		placement.ID,
		placement.ElementID,
		string(placement.ElementType),
		string(placement.Position),
		placement.SortOrder,
		placement.Title,
		placement.StartsAt,
		placement.EndsAt,
		placement.Enabled,
	).Scan(&placement.CreatedAt, &placement.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPlacementNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to update placement", zap.Int64("id", placement.ID), zap.Error(err))

		return generalDomain.NewStoreError("featured_placements.update", err)
	}

	return nil
}

func (r *placementRepo) GetByID(ctx context.Context, id int64) (*domain.Placement, error) {
	ctx, span := r.tracer.Start(ctx, "PlacementRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	query := fmt.Sprintf(`SELECT %s FROM featured_placements WHERE id = $1`, placementColumns)

	placement, err := scanPlacement(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlacementNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error get by id", zap.Int64("id", id), zap.Error(err))

		return nil, generalDomain.NewStoreError("featured_placements.select", err)
	}

	return &placement, nil
}

func (r *placementRepo) List(ctx context.Context, position *domain.Position) ([]domain.Placement, error) {
	ctx, span := r.tracer.Start(ctx, "PlacementRepository.List")
	defer span.End()

	var pos *string
	if position != nil {
		s := string(*position)
		pos = &s
		span.SetAttributes(attribute.String("position", s))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM featured_placements
		WHERE ($1::text IS NULL OR position = $1::text)
		ORDER BY sort_order ASC, id ASC
	`, placementColumns)

	return r.query(ctx, span, "featured_placements.list", query, pos)
}

// ListActive prefilters in SQL; callers still run domain.ActivePlacements
// over the result.
func (r *placementRepo) ListActive(ctx context.Context, position domain.Position, now time.Time) ([]domain.Placement, error) {
	ctx, span := r.tracer.Start(ctx, "PlacementRepository.ListActive")
	defer span.End()

	span.SetAttributes(attribute.String("position", string(position)))

	query := fmt.Sprintf(`
		SELECT %s
		FROM featured_placements
		WHERE enabled
		  AND starts_at <= $2
		  AND (ends_at IS NULL OR ends_at >= $2)
		  AND ($1::text = '' OR position = $1::text OR position = 'everywhere')
		ORDER BY sort_order ASC, id ASC
	`, placementColumns)

	return r.query(ctx, span, "featured_placements.active", query, string(position), now)
}

func (r *placementRepo) query(ctx context.Context, span trace.Span, op, query string, args ...any) ([]domain.Placement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting placements",
			zap.String("op", op),
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError(op, err)
	}
	defer rows.Close()

	placements := []domain.Placement{}
	for rows.Next() {
		p, err := scanPlacement(rows)
		if err != nil {
			span.RecordError(err)
			return nil, generalDomain.NewStoreError(op, err)
		}
		placements = append(placements, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, generalDomain.NewStoreError(op, err)
	}

	span.SetAttributes(attribute.Int("result_count", len(placements)))

	return placements, nil
}

func (r *placementRepo) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "PlacementRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM featured_placements WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error deleting placement", zap.Int64("id", id), zap.Error(err))

		return generalDomain.NewStoreError("featured_placements.delete", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrPlacementNotFound
	}

	return nil
}
