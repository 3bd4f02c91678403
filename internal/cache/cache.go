// ABOUTME: In-memory cache with TTL-based expiration
// ABOUTME: Holds rarely changing catalog responses between client calls

package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a thread-safe key/value store whose entries expire after ttl.
// Expired entries are dropped lazily on access.
type Cache struct {
	store sync.Map
	ttl   time.Duration
	now   func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
		now: time.Now,
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	val, ok := c.store.Load(key)
	if !ok {
		log.Debug().Str("key", key).Msg("cache miss")
		return nil, false
	}

	e := val.(entry)
	if c.now().After(e.expiresAt) {
		c.store.Delete(key)
		log.Debug().Str("key", key).Msg("cache expired")
		return nil, false
	}

	log.Debug().Str("key", key).Msg("cache hit")
	return e.data, true
}

func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.store.Store(key, entry{
		data:      value,
		expiresAt: c.now().Add(ttl),
	})
	log.Debug().Str("key", key).Dur("ttl", ttl).Msg("cache set")
}

// Clear drops key so the next Get misses
func (c *Cache) Clear(key string) {
	c.store.Delete(key)
}
