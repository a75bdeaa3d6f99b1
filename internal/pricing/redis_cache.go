package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// RedisCache keeps one JSON document per flight under "<prefix>:<flightID>".
// Keys carry no Redis TTL; staleness is judged from calculated_at.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisCache(rdb redis.Cmdable, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "price"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) key(flightID string) string { return c.prefix + ":" + flightID }

func (c *RedisCache) Get(ctx context.Context, flightID string) (*model.PriceCacheEntry, error) {
	raw, err := c.rdb.Get(ctx, c.key(flightID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get price %s: %w", flightID, err)
	}
	var e model.PriceCacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cached price %s: %w", flightID, err)
	}
	return &e, nil
}

func (c *RedisCache) Put(ctx context.Context, e model.PriceCacheEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode price %s: %w", e.FlightID, err)
	}
	if err := c.rdb.Set(ctx, c.key(e.FlightID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set price %s: %w", e.FlightID, err)
	}
	return nil
}
