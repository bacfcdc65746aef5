package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/boxmeout/poolengine/internal/domain"
)

// PoolCache implements domain.PoolCache using Redis with JSON serialization.
// It holds derived pool state only; the Postgres row stays the source of
// truth and writers invalidate after every settlement.
type PoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPoolCache creates a PoolCache with the given entry TTL.
func NewPoolCache(c *Client, ttl time.Duration) *PoolCache {
	return &PoolCache{rdb: c.Underlying(), ttl: ttl}
}

func poolKey(id domain.MarketID) string {
	return "pool:" + id.String()
}

// Get retrieves cached pool state, or domain.ErrNotFound on a miss.
func (pc *PoolCache) Get(ctx context.Context, id domain.MarketID) (domain.PoolState, error) {
	data, err := pc.rdb.Get(ctx, poolKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PoolState{}, domain.ErrNotFound
		}
		return domain.PoolState{}, fmt.Errorf("redis: get pool state %s: %w", id, err)
	}

	var st domain.PoolState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.PoolState{}, fmt.Errorf("redis: decode pool state %s: %w", id, err)
	}
	return st, nil
}

// Set stores pool state with the cache TTL.
func (pc *PoolCache) Set(ctx context.Context, st domain.PoolState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redis: encode pool state %s: %w", st.MarketID, err)
	}
	if err := pc.rdb.Set(ctx, poolKey(st.MarketID), data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set pool state %s: %w", st.MarketID, err)
	}
	return nil
}

// Invalidate drops the cached state for a market.
func (pc *PoolCache) Invalidate(ctx context.Context, id domain.MarketID) error {
	if err := pc.rdb.Del(ctx, poolKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate pool state %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PoolCache = (*PoolCache)(nil)
