package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
)

// StatsCache is the only in-process state shared across requests: a
// TTL-bounded snapshot of catalog aggregates per category filter. Concurrent
// readers may see a stale-but-valid copy; at most one refresh per key runs at
// a time. Staleness is harmless here, the data is descriptive summary text.
type StatsCache struct {
	store ports.ProductStore
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]domain.CatalogStats
	group   singleflight.Group
}

func NewStatsCache(store ports.ProductStore, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsCache{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]domain.CatalogStats),
	}
}

// staleEvictionFactor bounds how long an expired entry may linger for
// degraded reads. Category keys come straight from the query string, so
// without eviction every distinct client-supplied filter would stay in the
// map forever.
const staleEvictionFactor = 4

func (c *StatsCache) Stats(ctx context.Context, category string) (domain.CatalogStats, error) {
	c.mu.Lock()
	c.evictExpiredLocked()
	cached, ok := c.entries[category]
	c.mu.Unlock()

	if ok && c.now().Sub(cached.FetchedAt) < c.ttl {
		return cached, nil
	}

	fresh, err, _ := c.group.Do(category, func() (any, error) {
		stats, err := c.store.CatalogStats(ctx, category)
		if err != nil {
			return domain.CatalogStats{}, err
		}
		stats.FetchedAt = c.now()
		c.mu.Lock()
		c.entries[category] = stats
		c.mu.Unlock()
		return stats, nil
	})
	if err != nil {
		if ok {
			// Serve the stale copy rather than failing the request.
			return cached, nil
		}
		return domain.CatalogStats{}, err
	}
	return fresh.(domain.CatalogStats), nil
}

func (c *StatsCache) evictExpiredLocked() {
	horizon := time.Duration(staleEvictionFactor) * c.ttl
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.FetchedAt) > horizon {
			delete(c.entries, key)
		}
	}
}
