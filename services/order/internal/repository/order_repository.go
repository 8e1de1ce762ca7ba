package repository

import (
	"context"
	"errors"
	"fmt"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	UpdateCustomer(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	InsertHistory(ctx context.Context, tx pgx.Tx, entry *domain.HistoryEntry) error
	ListHistory(ctx context.Context, orderID int64) ([]domain.HistoryEntry, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

const orderColumns = `
	id, number, status,
	customer_name, customer_phone, customer_email, customer_address, customer_message,
	total_amount, currency, tracking_number, admin_note, revision,
	created_at, updated_at
`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.Number,
		&o.Status,
		&o.Customer.Name,
		&o.Customer.Phone,
		&o.Customer.Email,
		&o.Customer.Address,
		&o.Customer.Message,
		&o.TotalAmount,
		&o.Currency,
		&o.TrackingNumber,
		&o.AdminNote,
		&o.Revision,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_number", order.Number),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (
			number, status,
			customer_name, customer_phone, customer_email, customer_address, customer_message,
			total_amount, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, revision, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.Number,
		string(order.Status),
		order.Customer.Name,
		order.Customer.Phone,
		order.Customer.Email,
		order.Customer.Address,
		order.Customer.Message,
		order.TotalAmount,
		order.Currency,
	).Scan(
		&order.ID,
		&order.Revision,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.String("order_number", order.Number),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("orders.insert", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, image_url, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
			item.ImageURL,
			item.Currency,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert item",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)

			return generalDomain.NewStoreError("order_items.insert", err)
		}
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	return r.getOne(ctx, span, r.pool, query, id)
}

func (r *orderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByNumber")
	defer span.End()

	span.SetAttributes(attribute.String("order_number", number))

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE number = $1`, orderColumns)

	return r.getOne(ctx, span, r.pool, query, number)
}

// GetForUpdate locks the order row until tx ends.
func (r *orderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1 FOR UPDATE`, orderColumns)

	return r.getOne(ctx, span, tx, query, id)
}

func (r *orderRepo) getOne(ctx context.Context, span trace.Span, q querier, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to select order",
			zap.Any("key", arg),
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError("orders.select", err)
	}

	items, err := r.loadItems(ctx, q, []int64{order.ID})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

func (r *orderRepo) loadItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, unit_price, quantity, image_url, currency
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order_items",
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError("order_items.select", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.ImageURL,
			&item.Currency,
		); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan order item",
				zap.Error(err),
			)

			return nil, generalDomain.NewStoreError("order_items.scan", err)
		}

		result[item.OrderID] = append(result[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, generalDomain.NewStoreError("order_items.rows", err)
	}

	return result, nil
}

func (r *orderRepo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", filter.Limit),
		attribute.Int("offset", filter.Offset),
	)

	var status *string
	if filter.Status != nil {
		s := filter.Status.String()
		status = &s
		span.SetAttributes(attribute.String("status", s))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE ($1::text IS NULL OR status = $1::text)
		  AND (
			$2::boolean IS NULL
			OR (btrim(customer_email) = '' OR btrim(customer_address) = '') = $2::boolean
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, orderColumns)

	rows, err := r.pool.Query(ctx, query, status, filter.Incomplete, filter.Limit, filter.Offset)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to list orders",
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError("orders.list", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			return nil, generalDomain.NewStoreError("orders.scan", err)
		}

		orders = append(orders, order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, generalDomain.NewStoreError("orders.rows", err)
	}

	if len(orders) == 0 {
		return []*domain.Order{}, nil
	}

	items, err := r.loadItems(ctx, r.pool, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, order := range orders {
		order.Items = items[order.ID]
	}

	span.SetAttributes(attribute.Int("result_count", len(orders)))

	return orders, nil
}

// UpdateStatus writes the status and bumps the revision. A nil tracking
// number or admin note keeps the stored value.
func (r *orderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
		attribute.String("status", order.Status.String()),
	)

	query := `
		UPDATE orders
		SET status = $2,
			tracking_number = COALESCE($3::text, tracking_number),
			admin_note = COALESCE($4::text, admin_note),
			revision = revision + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING tracking_number, admin_note, revision, updated_at
	`

	err := tx.QueryRow(
		ctx,
		query,
		order.ID,
		order.Status.String(),
		order.TrackingNumber,
		order.AdminNote,
	).Scan(
		&order.TrackingNumber,
		&order.AdminNote,
		&order.Revision,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			mylogger.Warn(
				ctx,
				r.logger,
				"Order not found",
				zap.Int64("order_id", order.ID),
			)

			return ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update order status",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("orders.update_status", err)
	}

	return nil
}

func (r *orderRepo) UpdateCustomer(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateCustomer")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", order.ID))

	query := `
		UPDATE orders
		SET customer_name = $2,
			customer_phone = $3,
			customer_email = $4,
			customer_address = $5,
			customer_message = $6,
			revision = revision + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING revision, updated_at
	`

	err := tx.QueryRow(
		ctx,
		query,
		order.ID,
		order.Customer.Name,
		order.Customer.Phone,
		order.Customer.Email,
		order.Customer.Address,
		order.Customer.Message,
	).Scan(&order.Revision, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update customer info",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("orders.update_customer", err)
	}

	return nil
}

func (r *orderRepo) InsertHistory(ctx context.Context, tx pgx.Tx, entry *domain.HistoryEntry) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.InsertHistory")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", entry.OrderID),
		attribute.String("previous_status", entry.PreviousStatus.String()),
		attribute.String("new_status", entry.NewStatus.String()),
	)

	query := `
		INSERT INTO order_history (order_id, previous_status, new_status, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		entry.OrderID,
		entry.PreviousStatus.String(),
		entry.NewStatus.String(),
		entry.Comment,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert history entry",
			zap.Int64("order_id", entry.OrderID),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("order_history.insert", err)
	}

	return nil
}

func (r *orderRepo) ListHistory(ctx context.Context, orderID int64) ([]domain.HistoryEntry, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListHistory")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		SELECT id, order_id, previous_status, new_status, comment, created_at
		FROM order_history
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, generalDomain.NewStoreError("order_history.select", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.OrderID,
			&e.PreviousStatus,
			&e.NewStatus,
			&e.Comment,
			&e.CreatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, generalDomain.NewStoreError("order_history.scan", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, generalDomain.NewStoreError("order_history.rows", err)
	}

	return entries, nil
}

func (r *orderRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	commandTag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to delete order",
			zap.Int64("order_id", id),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("orders.delete", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
