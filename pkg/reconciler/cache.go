package reconciler

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache holds reconciled results for their TTL. Read-many, write-on-
// invalidate: a confirmed transaction drops the entries it could have
// affected instead of waiting for expiry.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  *Result
	expires time.Time
}

// NewCache creates a result cache with the given TTL. A zero or negative
// TTL disables caching entirely.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) get(key string) (*Result, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.result, true
}

func (c *Cache) put(key string, result *Result) {
	if c == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expires: time.Now().Add(c.ttl)}
}

// invalidate drops exactly one entry. Used for the per-chain list key, where
// prefix matching would cross chains ("pools:1" prefixes "pools:11155111").
func (c *Cache) invalidate(key string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// invalidatePrefix drops every entry whose key starts with prefix.
func (c *Cache) invalidatePrefix(prefix string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func listKey(chainID int64) string {
	return fmt.Sprintf("pools:%d", chainID)
}

func userKeyPrefix(chainID int64, address string) string {
	return fmt.Sprintf("user-pools:%d:%s:", chainID, address)
}

func userKey(chainID int64, address string, partition string) string {
	return userKeyPrefix(chainID, address) + partition
}
