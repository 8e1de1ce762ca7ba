package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	outboxDomain "github.com/chezmonami/platform/pkg/outbox/domain"
	"github.com/chezmonami/platform/pkg/outbox/worker"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/chezmonami/platform/services/order/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	numberAttempts  = 3
	uniqueViolation = "23505"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, upd domain.StatusUpdate) (*domain.Order, error)
	CompleteCustomerInfo(ctx context.Context, id int64, contact domain.Contact, expectedRevision *int64) (*domain.Order, error)
	ListHistory(ctx context.Context, id int64) ([]domain.HistoryEntry, error)
	DeleteOrder(ctx context.Context, id int64) error
}

type Option func(*orderService)

func WithTransitionPolicy(p domain.TransitionPolicy) Option {
	return func(s *orderService) {
		if p != nil {
			s.policy = p
		}
	}
}

func WithHistoryMode(m domain.HistoryMode) Option {
	return func(s *orderService) {
		if m != "" {
			s.historyMode = m
		}
	}
}

func WithDefaultCurrency(currency string) Option {
	return func(s *orderService) {
		s.defaultCurrency = strings.ToUpper(strings.TrimSpace(currency))
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *orderService) {
		s.now = now
	}
}

type orderService struct {
	pool       *pgxpool.Pool
	logger     *zap.Logger
	orderRepo  repository.OrderRepository
	outboxRepo worker.OutboxRepository
	tracer     trace.Tracer

	policy          domain.TransitionPolicy
	historyMode     domain.HistoryMode
	defaultCurrency string
	now             func() time.Time
	metrics         *Metrics
}

func NewOrderService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	outboxRepo worker.OutboxRepository,
	opts ...Option,
) OrderService {
	s := &orderService{
		pool:        pool,
		logger:      logger,
		orderRepo:   orderRepo,
		outboxRepo:  outboxRepo,
		tracer:      otel.Tracer("order_service"),
		policy:      domain.PermissivePolicy(),
		historyMode: domain.HistoryAlways,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *orderService) CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	items := make([]domain.OrderItem, len(in.Items))
	copy(items, in.Items)
	for i := range items {
		items[i].Currency = strings.ToUpper(strings.TrimSpace(items[i].Currency))
	}

	in.Items = items
	in.Contact = in.Contact.Normalize()
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.inferCurrency(items)
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].Currency == "" {
			items[i].Currency = in.Currency
		}
	}

	order := &domain.Order{
		Status:   domain.OrderStatusNew,
		Customer: in.Contact.Customer(),
		Items:    items,
		Currency: in.Currency,
	}
	order.CalculateTotal()

	var err error
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		order.Number = domain.NewOrderNumber(s.now())

		err = s.inTx(ctx, func(tx pgx.Tx) error {
			if err := s.orderRepo.Create(ctx, tx, order); err != nil {
				return err
			}

			lines := make([]generalDomain.OrderLine, 0, len(order.Items))
			for _, item := range order.Items {
				lines = append(lines, generalDomain.OrderLine{
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
				})
			}

			return s.emitEvent(ctx, tx, order.ID, generalDomain.EventOrderCreated, &generalDomain.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.Number,
				TotalAmount: order.TotalAmount,
				Currency:    order.Currency,
				Items:       lines,
				CreatedAt:   order.CreatedAt,
			})
		})
		if err == nil || !isUniqueViolation(err) {
			break
		}

		mylogger.Warn(
			ctx,
			s.logger,
			"Order number collision, regenerating",
			zap.String("order_number", order.Number),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to create order",
			zap.Error(err),
		)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
		attribute.String("order_number", order.Number),
	)

	mylogger.Info(
		ctx,
		s.logger,
		"Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.Number),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.metrics.orderCreated()

	return order, nil
}

func (s *orderService) inferCurrency(items []domain.OrderItem) string {
	for _, item := range items {
		if item.Currency != "" {
			return item.Currency
		}
	}
	return s.defaultCurrency
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, id)
	}

	return order, nil
}

func (s *orderService) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetByNumber")
	defer span.End()

	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, generalDomain.Invalid("number", "order number is required")
	}

	span.SetAttributes(attribute.String("order_number", number))

	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, notFoundAs(err, number)
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.orderRepo.List(ctx, filter)
}

// UpdateStatus moves an order to a new status. The status row, the history
// entry and the outbox event commit together.
func (s *orderService) UpdateStatus(ctx context.Context, id int64, upd domain.StatusUpdate) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", id),
		attribute.String("status", upd.Status),
	)

	next, err := domain.ParseStatus(upd.Status)
	if err != nil {
		return nil, err
	}

	comment := strings.TrimSpace(upd.Comment)

	var (
		order    *domain.Order
		previous domain.OrderStatus
	)

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		order, err = s.orderRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return notFoundAs(err, id)
		}

		if err := checkRevision(order, upd.ExpectedRevision); err != nil {
			return err
		}

		if err := s.policy.Check(order.Status, next); err != nil {
			return err
		}

		previous = order.Status
		order.Status = next
		order.AdminNote = nil
		if comment != "" {
			order.AdminNote = &comment
		}
		order.TrackingNumber = nil
		if upd.TrackingNumber != nil {
			if tn := strings.TrimSpace(*upd.TrackingNumber); tn != "" {
				order.TrackingNumber = &tn
			}
		}

		if err := s.orderRepo.UpdateStatus(ctx, tx, order); err != nil {
			return notFoundAs(err, id)
		}

		if s.historyMode.ShouldRecord(comment) {
			entry := &domain.HistoryEntry{
				OrderID:        order.ID,
				PreviousStatus: previous,
				NewStatus:      next,
			}
			if comment != "" {
				entry.Comment = &comment
			}

			if err := s.orderRepo.InsertHistory(ctx, tx, entry); err != nil {
				return err
			}
		}

		event := &generalDomain.OrderStatusChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.Number,
			PreviousStatus: previous.String(),
			NewStatus:      next.String(),
			Comment:        comment,
			CustomerName:   order.Customer.Name,
			CustomerEmail:  order.Customer.Email,
			ChangedAt:      order.UpdatedAt,
		}
		if order.TrackingNumber != nil {
			event.TrackingNumber = *order.TrackingNumber
		}

		return s.emitEvent(ctx, tx, order.ID, generalDomain.EventOrderStatusChanged, event)
	})
	if err != nil {
		span.RecordError(err)

		mylogger.Warn(
			ctx,
			s.logger,
			"Failed to update order status",
			zap.Int64("order_id", id),
			zap.String("status", upd.Status),
			zap.Error(err),
		)

		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order status updated",
		zap.Int64("order_id", id),
		zap.String("previous_status", previous.String()),
		zap.String("new_status", next.String()),
		zap.Int64("revision", order.Revision),
	)
	s.metrics.statusChanged(previous.String(), next.String())

	return order, nil
}

// CompleteCustomerInfo replaces the contact block. Status and history are
// left untouched.
func (s *orderService) CompleteCustomerInfo(ctx context.Context, id int64, contact domain.Contact, expectedRevision *int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CompleteCustomerInfo")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	contact = contact.Normalize()
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = s.orderRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return notFoundAs(err, id)
		}

		if err := checkRevision(order, expectedRevision); err != nil {
			return err
		}

		order.Customer = contact.Customer()

		if err := s.orderRepo.UpdateCustomer(ctx, tx, order); err != nil {
			return notFoundAs(err, id)
		}

		return s.emitEvent(ctx, tx, order.ID, generalDomain.EventOrderCustomerInfoCompleted, &generalDomain.OrderCustomerInfoCompletedEvent{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			Incomplete:  order.IsInfoIncomplete(),
			CompletedAt: order.UpdatedAt,
		})
	})
	if err != nil {
		span.RecordError(err)

		mylogger.Warn(
			ctx,
			s.logger,
			"Failed to complete customer info",
			zap.Int64("order_id", id),
			zap.Error(err),
		)

		return nil, err
	}

	return order, nil
}

func (s *orderService) ListHistory(ctx context.Context, id int64) ([]domain.HistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListHistory")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	if _, err := s.orderRepo.GetByID(ctx, id); err != nil {
		return nil, notFoundAs(err, id)
	}

	return s.orderRepo.ListHistory(ctx, id)
}

func (s *orderService) DeleteOrder(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.DeleteOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		return notFoundAs(s.orderRepo.Delete(ctx, tx, id), id)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	mylogger.Info(ctx, s.logger, "Order deleted", zap.Int64("order_id", id))

	return nil
}

func (s *orderService) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to begin transaction",
			zap.Error(err),
		)

		return generalDomain.NewStoreError("tx.begin", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(shutdownCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				shutdownCtx,
				s.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to commit transaction",
			zap.Error(err),
		)

		return generalDomain.NewStoreError("tx.commit", err)
	}

	return nil
}

func (s *orderService) emitEvent(ctx context.Context, tx pgx.Tx, orderID int64, eventType string, payload any) error {
	event, err := outboxDomain.NewEvent(generalDomain.TopicOrderEvents, "Order", orderID, eventType, payload)
	if err != nil {
		return err
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, tx, event); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to save outbox event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("outbox.insert", err)
	}

	return nil
}

func checkRevision(order *domain.Order, expected *int64) error {
	if expected == nil || *expected == order.Revision {
		return nil
	}

	return &generalDomain.ConflictError{
		Entity:   "order",
		ID:       fmt.Sprint(order.ID),
		Expected: *expected,
	}
}

// notFoundAs turns the repository sentinel into a NotFoundError carrying the
// key that was looked up. Other errors pass through.
func notFoundAs(err error, key any) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return generalDomain.NewNotFound("order", key)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
