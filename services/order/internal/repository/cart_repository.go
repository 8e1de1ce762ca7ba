package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CartRepository interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// cartRepo keeps one JSON document per session. Every save refreshes the
// TTL so an idle session expires on its own.
type cartRepo struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCartRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) CartRepository {
	return &cartRepo{
		client: client,
		ttl:    ttl,
		logger: logger,
		tracer: otel.Tracer("cart_repository"),
	}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func (r *cartRepo) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Get")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	val, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCartNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to read cart",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)

		return nil, generalDomain.NewStoreError("carts.get", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(val, &cart); err != nil {
		span.RecordError(err)
		return nil, generalDomain.NewStoreError("carts.decode", err)
	}

	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}

	return &cart, nil
}

func (r *cartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", cart.SessionID),
		attribute.Int("items_count", len(cart.Items)),
	)

	cart.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cart)
	if err != nil {
		span.RecordError(err)
		return generalDomain.NewStoreError("carts.encode", err)
	}

	if err := r.client.Set(ctx, cartKey(cart.SessionID), data, r.ttl).Err(); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to save cart",
			zap.String("session_id", cart.SessionID),
			zap.Error(err),
		)

		return generalDomain.NewStoreError("carts.set", err)
	}

	return nil
}

func (r *cartRepo) Delete(ctx context.Context, sessionID string) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return generalDomain.NewStoreError("carts.del", err)
	}

	return nil
}
