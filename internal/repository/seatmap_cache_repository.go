package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

// SeatMapCacheRepository caches per-voyage occupancy snapshots in
// Redis. The cache is advisory only: the engine always re-reads the
// store before writing.
type SeatMapCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSeatMapCacheRepository constructs a cache repository.
func NewSeatMapCacheRepository(client *redis.Client, logger *zap.Logger) *SeatMapCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatMapCacheRepository{client: client, logger: logger}
}

func seatMapKey(voyageID int64) string {
	return fmt.Sprintf("seatmap:voyage:%d", voyageID)
}

// Get retrieves the cached taken-seat ids for the voyage.
func (r *SeatMapCacheRepository) Get(ctx context.Context, voyageID int64) ([]int64, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, seatMapKey(voyageID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get seatmap %d: %w", voyageID, err)
	}
	var taken []int64
	if err := json.Unmarshal(raw, &taken); err != nil {
		return nil, fmt.Errorf("unmarshal seatmap %d: %w", voyageID, err)
	}
	return taken, nil
}

// Set stores the taken-seat ids with the given TTL.
func (r *SeatMapCacheRepository) Set(ctx context.Context, voyageID int64, taken []int64, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(taken)
	if err != nil {
		return fmt.Errorf("marshal seatmap %d: %w", voyageID, err)
	}
	if err := r.client.Set(ctx, seatMapKey(voyageID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set seatmap %d: %w", voyageID, err)
	}
	return nil
}

// Invalidate drops the voyage's cached snapshot. Failures are logged,
// not propagated: a stale advisory cache must never fail a write path.
func (r *SeatMapCacheRepository) Invalidate(ctx context.Context, voyageID int64) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, seatMapKey(voyageID)).Err(); err != nil {
		r.logger.Warn("failed to invalidate seatmap cache",
			zap.Int64("voyage_id", voyageID), zap.Error(err))
	}
}
