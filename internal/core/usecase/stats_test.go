package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

type statsStoreFake struct {
	storeFake
	calls int
	err   error
}

func (f *statsStoreFake) CatalogStats(context.Context, string) (domain.CatalogStats, error) {
	f.calls++
	if f.err != nil {
		return domain.CatalogStats{}, f.err
	}
	return domain.CatalogStats{TotalProducts: 100 + f.calls}, nil
}

func TestStatsCacheServesFreshCopyWithoutRefetch(t *testing.T) {
	store := &statsStoreFake{}
	cache := NewStatsCache(store, time.Minute)

	first, err := cache.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	second, err := cache.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected one store fetch, got %d", store.calls)
	}
	if first.TotalProducts != second.TotalProducts {
		t.Fatalf("cached copy must be stable")
	}
}

func TestStatsCacheRefreshesAfterTTL(t *testing.T) {
	store := &statsStoreFake{}
	cache := NewStatsCache(store, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	if _, err := cache.Stats(context.Background(), ""); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	cache.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := cache.Stats(context.Background(), ""); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected refresh after TTL, got %d fetches", store.calls)
	}
}

func TestStatsCacheServesStaleOnRefreshFailure(t *testing.T) {
	store := &statsStoreFake{}
	cache := NewStatsCache(store, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }
	fresh, err := cache.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	store.err = errors.New("store down")
	cache.now = func() time.Time { return now.Add(2 * time.Minute) }

	stale, err := cache.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stale copy should be served on refresh failure, got %v", err)
	}
	if stale.TotalProducts != fresh.TotalProducts {
		t.Fatalf("expected the stale copy, got %+v", stale)
	}
}

func TestStatsCacheErrorWithoutCachedCopy(t *testing.T) {
	store := &statsStoreFake{err: errors.New("store down")}
	cache := NewStatsCache(store, time.Minute)

	if _, err := cache.Stats(context.Background(), ""); err == nil {
		t.Fatalf("expected error when no cached copy exists")
	}
}

func TestStatsCacheEvictsExpiredCategoryKeys(t *testing.T) {
	store := &statsStoreFake{}
	cache := NewStatsCache(store, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	// Category filters arrive straight from the query string, so the map
	// must not grow without bound as clients invent new ones.
	for i := 0; i < 500; i++ {
		if _, err := cache.Stats(context.Background(), fmt.Sprintf("category-%d", i)); err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
	}

	cache.now = func() time.Time { return now.Add(time.Duration(staleEvictionFactor+1) * time.Minute) }
	if _, err := cache.Stats(context.Background(), "Lifejackets"); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	cache.mu.Lock()
	size := len(cache.entries)
	cache.mu.Unlock()
	if size != 1 {
		t.Fatalf("expected expired category keys evicted, map holds %d entries", size)
	}
}

func TestStatsCacheKeepsStaleEntriesWithinHorizon(t *testing.T) {
	store := &statsStoreFake{}
	cache := NewStatsCache(store, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }
	if _, err := cache.Stats(context.Background(), ""); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	// Expired but inside the eviction horizon: still usable for a degraded
	// read when the refresh fails.
	store.err = errors.New("store down")
	cache.now = func() time.Time { return now.Add(3 * time.Minute) }
	if _, err := cache.Stats(context.Background(), ""); err != nil {
		t.Fatalf("stale copy inside horizon should still serve, got %v", err)
	}
}

func TestStatsCachePerCategoryEntries(t *testing.T) {
	store := &statsStoreFake{}
	cache := NewStatsCache(store, time.Minute)

	if _, err := cache.Stats(context.Background(), ""); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if _, err := cache.Stats(context.Background(), "Lifejackets"); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("distinct category filters cache separately, got %d fetches", store.calls)
	}
}
