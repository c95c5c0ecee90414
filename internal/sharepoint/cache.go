package sharepoint

import (
	"sync"
	"time"

	"github.com/ppiankov/docspectre/internal/models"
)

// cacheEntry is a resolved user with expiration
type cacheEntry struct {
	identity  *models.Identity
	expiresAt time.Time
}

// userCache provides thread-safe caching of user id -> identity lookups
type userCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func newUserCache(ttl time.Duration) *userCache {
	return &userCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		maxSize: 10000,
		now:     time.Now,
	}
}

// get returns the cached identity and whether a live entry existed.
// A cached nil identity means the user is known to be unresolvable.
func (c *userCache) get(key string) (*models.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.identity, true
}

func (c *userCache) set(key string, identity *models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{
		identity:  identity,
		expiresAt: c.now().Add(c.ttl),
	}
}

// evictOldest removes expired entries, then 10% of the rest if still full
func (c *userCache) evictOldest() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) >= c.maxSize {
		count := 0
		target := c.maxSize / 10
		for key := range c.entries {
			delete(c.entries, key)
			count++
			if count >= target {
				break
			}
		}
	}
}

func (c *userCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
