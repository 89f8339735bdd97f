// Package cache implements the time-boxed search result cache. It is
// process-local: entries are keyed by the normalized query string and
// expire after a fixed TTL. Index mutation handlers clear it outright, so a
// stale entry can outlive its source data only until the next mutation or
// the TTL, whichever comes first.
package cache

import (
	"sync"
	"time"

	"github.com/openstay/stayindex/internal/domain/search"
	"github.com/openstay/stayindex/internal/metrics"
)

// DefaultTTL is the entry lifetime when none is configured.
const DefaultTTL = 5 * time.Minute

type entry struct {
	page      *search.Page
	expiresAt time.Time
}

// Cache is a TTL map of search pages.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	quit      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a cache. ttl <= 0 selects DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		quit:    make(chan struct{}),
	}
}

// Get returns the cached page for key, or nil on miss or expiry.
func (c *Cache) Get(key string) *search.Page {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		metrics.CacheMiss()
		return nil
	}
	metrics.CacheHit()
	return e.page
}

// Set stores a page under key.
func (c *Cache) Set(key string, page *search.Page) {
	c.mu.Lock()
	c.entries[key] = entry{page: page, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Clear drops every entry. Called by the indexer after each mutation so
// searches never serve results older than the last index write.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper launches a background goroutine that sweeps expired entries
// every interval. interval <= 0 sweeps once per TTL.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.Sweep()
				case <-c.quit:
					return
				}
			}
		}()
	})
}

// Stop halts the sweeper. Safe to call without StartSweeper.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	c.wg.Wait()
}

// Sweep removes expired entries so that read-heavy periods without
// mutations cannot grow the map without bound. Get already ignores expired
// entries, so sweeping affects footprint only.
func (c *Cache) Sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
