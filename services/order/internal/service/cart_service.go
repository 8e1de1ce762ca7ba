package service

import (
	"context"
	"errors"
	"strings"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/chezmonami/platform/services/order/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, item domain.CartItem) (*domain.Cart, error)
	SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int32) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) error
	Checkout(ctx context.Context, sessionID string, contact domain.Contact) (*domain.Order, error)
}

type cartService struct {
	carts  repository.CartRepository
	orders OrderService
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCartService(carts repository.CartRepository, orders OrderService, logger *zap.Logger) CartService {
	return &cartService{
		carts:  carts,
		orders: orders,
		logger: logger,
		tracer: otel.Tracer("cart_service"),
	}
}

func (s *cartService) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, generalDomain.Invalid("session_id", "session id is required")
	}

	cart, err := s.carts.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(sessionID), nil
	}
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// Get returns an empty cart for an unknown session.
func (s *cartService) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Get")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	return s.load(ctx, sessionID)
}

func (s *cartService) AddItem(ctx context.Context, sessionID string, item domain.CartItem) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int64("product_id", item.ProductID),
	)

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		item.Currency = strings.ToUpper(strings.TrimSpace(item.Currency))
		return cart.AddItem(item)
	})
}

func (s *cartService) SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int32) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.SetQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int64("product_id", productID),
	)

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		return cart.SetQuantity(productID, quantity)
	})
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, productID int64) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int64("product_id", productID),
	)

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) error {
		return cart.RemoveItem(productID)
	})
}

func (s *cartService) mutate(ctx context.Context, sessionID string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "CartService.Clear")
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return generalDomain.Invalid("session_id", "session id is required")
	}

	span.SetAttributes(attribute.String("session_id", sessionID))

	return s.carts.Delete(ctx, sessionID)
}

// Checkout turns the cart into an order and empties it. A failure to clear
// the cart is logged but does not undo the order.
func (s *cartService) Checkout(ctx context.Context, sessionID string, contact domain.Contact) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Checkout")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if cart.IsEmpty() {
		return nil, generalDomain.Invalid("items", "cart is empty")
	}

	order, err := s.orders.CreateOrder(ctx, domain.NewOrder{
		Contact:  contact,
		Items:    cart.OrderItems(),
		Currency: cart.Currency,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.carts.Delete(ctx, cart.SessionID); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Order placed but cart was not cleared",
			zap.String("session_id", cart.SessionID),
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}

	return order, nil
}
