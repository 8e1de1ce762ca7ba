package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cachedPlacementService keeps the storefront's active-placement lists in
// Redis. Any write drops every cached list; window edges are picked up once
// the TTL runs out.
type cachedPlacementService struct {
	next        PlacementService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewCachedPlacementService(next PlacementService, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) PlacementService {
	return &cachedPlacementService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    ttl,
		logger:      logger,
	}
}

func activeKey(position domain.Position) string {
	if position == "" {
		return "placements:active:all"
	}
	return fmt.Sprintf("placements:active:%s", position)
}

func (s *cachedPlacementService) ListActive(ctx context.Context, position domain.Position) ([]domain.Placement, error) {
	key := activeKey(position)

	val, err := s.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		var placements []domain.Placement
		if err := json.Unmarshal(val, &placements); err == nil {
			return placements, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		mylogger.Warn(ctx, s.logger, "Placement cache read failed", zap.String("key", key), zap.Error(err))
	}

	placements, err := s.next.ListActive(ctx, position)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(placements); err == nil {
		if err := s.redisClient.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
			mylogger.Warn(ctx, s.logger, "Placement cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return placements, nil
}

func (s *cachedPlacementService) invalidate(ctx context.Context) {
	keys := []string{
		activeKey(""),
		activeKey(domain.PositionHome),
		activeKey(domain.PositionListing),
		activeKey(domain.PositionEverywhere),
	}

	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		mylogger.Warn(ctx, s.logger, "Placement cache invalidation failed", zap.Error(err))
	}
}

func (s *cachedPlacementService) Create(ctx context.Context, in domain.PlacementInput) (*domain.Placement, error) {
	placement, err := s.next.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return placement, nil
}

func (s *cachedPlacementService) Update(ctx context.Context, id int64, in domain.PlacementInput) (*domain.Placement, error) {
	placement, err := s.next.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return placement, nil
}

func (s *cachedPlacementService) Delete(ctx context.Context, id int64) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *cachedPlacementService) Get(ctx context.Context, id int64) (*domain.Placement, error) {
	return s.next.Get(ctx, id)
}

func (s *cachedPlacementService) List(ctx context.Context, position *domain.Position) ([]domain.Placement, error) {
	return s.next.List(ctx, position)
}
