package services

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"finledger/internal/cache"
	"finledger/internal/core"
)

// ReportCache memoizes statements per ledger version. Concurrent misses for
// the same key share one computation.
type ReportCache struct {
	stats    *cache.LRUCache[core.Stats]
	balances *cache.LRUCache[[]core.PartnerBalance]
	group    singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

func NewReportCache(size int, ttl time.Duration) *ReportCache {
	return &ReportCache{
		stats:    cache.NewLRUCache[core.Stats](size, ttl),
		balances: cache.NewLRUCache[[]core.PartnerBalance](size, ttl),
	}
}

// Register hands the underlying caches to a manager for periodic cleanup.
func (c *ReportCache) Register(m *cache.Manager) {
	m.Register(c.stats)
	m.Register(c.balances)
}

func cacheKey(version uint64, label string) string {
	return fmt.Sprintf("v%d:%s", version, label)
}

// Stats returns the cached statement for (version, label) or computes it.
func (c *ReportCache) Stats(version uint64, label string, compute func() core.Stats) core.Stats {
	return load(c, c.stats, "stats:"+cacheKey(version, label), compute)
}

// PartnerBalances is Stats for partner balance listings.
func (c *ReportCache) PartnerBalances(version uint64, label string, compute func() []core.PartnerBalance) []core.PartnerBalance {
	return load(c, c.balances, "balances:"+cacheKey(version, label), compute)
}

func load[T any](c *ReportCache, lru *cache.LRUCache[T], key string, compute func() T) T {
	if v, ok := lru.Get(key); ok {
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)
	v, _, _ := c.group.Do(key, func() (any, error) {
		if v, ok := lru.Get(key); ok {
			return v, nil
		}
		v := compute()
		lru.Set(key, v)
		return v, nil
	})
	return v.(T)
}

// Invalidate drops every entry. Keys are versioned, so this only frees
// memory early.
func (c *ReportCache) Invalidate() {
	c.stats.Purge()
	c.balances.Purge()
}

// Counters returns hit and miss counts.
func (c *ReportCache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
