package pricing

import (
	"context"
	"sync"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// Cache stores at most one entry per flight. Get returns (nil, nil) on a
// miss. Implementations never expire entries themselves; the gateway
// decides freshness from CalculatedAt.
type Cache interface {
	Get(ctx context.Context, flightID string) (*model.PriceCacheEntry, error)
	Put(ctx context.Context, entry model.PriceCacheEntry) error
}

// MemoryCache is the process-local Cache used when Redis is unavailable.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]model.PriceCacheEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]model.PriceCacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, flightID string) (*model.PriceCacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[flightID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *MemoryCache) Put(_ context.Context, e model.PriceCacheEntry) error {
	c.mu.Lock()
	c.entries[e.FlightID] = e
	c.mu.Unlock()
	return nil
}

// Len reports the number of cached flights.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
