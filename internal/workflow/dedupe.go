package workflow

import (
	"sync"
	"time"
)

// DedupeCache remembers recently seen request IDs so a retried command is
// acknowledged without running twice. Entries expire after a TTL; the cache
// is bounded and evicts the oldest entries when full.
type DedupeCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]time.Time
	order      []string
	now        func() time.Time
}

// NewDedupeCache creates a cache. maxEntries must be positive.
func NewDedupeCache(ttl time.Duration, maxEntries int) *DedupeCache {
	return &DedupeCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]time.Time),
		now:        time.Now,
	}
}

// Seen records id and reports whether it was already present and unexpired.
// An empty id is never deduplicated.
func (c *DedupeCache) Seen(id string) bool {
	if id == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if deadline, ok := c.entries[id]; ok && now.Before(deadline) {
		return true
	}

	c.evictLocked(now)
	c.entries[id] = now.Add(c.ttl)
	c.order = append(c.order, id)
	return false
}

// evictLocked drops expired entries, then the oldest ones until under the
// size bound.
func (c *DedupeCache) evictLocked(now time.Time) {
	kept := c.order[:0]
	for _, id := range c.order {
		if deadline, ok := c.entries[id]; ok && now.Before(deadline) {
			kept = append(kept, id)
		} else {
			delete(c.entries, id)
		}
	}
	c.order = kept

	for len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
