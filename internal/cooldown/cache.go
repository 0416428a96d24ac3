package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Ghost-ify/Namite/internal/domain"
)

const cacheShards = 16

// Cache is the short-TTL memory tier: usernames checked minutes ago never
// cost a durable-store round trip. Sharded so concurrent workers touching
// different usernames rarely contend on one lock.
type Cache struct {
	ttl    time.Duration
	now    func() time.Time
	shards [cacheShards]cacheShard
}

type cacheShard struct {
	mu      sync.RWMutex
	expires map[string]time.Time
}

func NewCache(ttl time.Duration) *Cache {
	c := &Cache{ttl: ttl, now: time.Now}
	for i := range c.shards {
		c.shards[i].expires = make(map[string]time.Time)
	}
	return c
}

func (c *Cache) shard(username string) *cacheShard {
	return &c.shards[xxhash.Sum64String(username)%cacheShards]
}

func (c *Cache) InCooldown(ctx context.Context, username string) (bool, error) {
	sh := c.shard(username)
	sh.mu.RLock()
	exp, ok := sh.expires[username]
	sh.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if c.now().After(exp) {
		sh.mu.Lock()
		// Re-read under the write lock; a concurrent Remember may have
		// refreshed the entry since the read lock dropped.
		if cur, live := sh.expires[username]; live && c.now().After(cur) {
			delete(sh.expires, username)
		}
		sh.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *Cache) Remember(ctx context.Context, rec domain.CooldownRecord) error {
	sh := c.shard(rec.Username)
	sh.mu.Lock()
	sh.expires[rec.Username] = c.now().Add(c.ttl)
	sh.mu.Unlock()
	return nil
}

// Len reports live entries across all shards.
func (c *Cache) Len() int {
	total := 0
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.RLock()
		total += len(sh.expires)
		sh.mu.RUnlock()
	}
	return total
}
