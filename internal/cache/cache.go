package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// purgeEvery is the number of writes between sweeps of expired entries.
const purgeEvery = 100

// Cache stores values of one type with an expiration time.
// It is safe for concurrent use.
type Cache[V any] struct {
	items      sync.Map
	writes     atomic.Uint32
	defaultTTL time.Duration
	now        func() time.Time
}

type entry[V any] struct {
	value   V
	expires int64
}

// New creates a cache whose entries live for ttl unless Set is given
// another duration. A non-positive ttl defaults to ten minutes.
func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache[V]{
		defaultTTL: ttl,
		now:        time.Now,
	}
}

// Set stores value under key. A zero ttl uses the default TTL and a
// negative ttl keeps the entry until it is deleted.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	var expires int64
	if ttl > 0 {
		expires = c.now().Add(ttl).UnixNano()
	}
	c.items.Store(key, entry[V]{value: value, expires: expires})

	if c.writes.Add(1) >= purgeEvery {
		c.DeleteExpired()
		c.writes.Store(0)
	}
}

// Get returns the value stored under key. Expired entries are removed and
// reported as missing.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	obj, ok := c.items.Load(key)
	if !ok {
		return zero, false
	}

	e := obj.(entry[V])
	if e.expires > 0 && c.now().UnixNano() > e.expires {
		c.items.Delete(key)
		return zero, false
	}
	return e.value, true
}

// DeleteExpired drops every entry past its expiration time.
func (c *Cache[V]) DeleteExpired() {
	now := c.now().UnixNano()
	c.items.Range(func(key, value any) bool {
		if e := value.(entry[V]); e.expires > 0 && now > e.expires {
			c.items.Delete(key)
		}
		return true
	})
}

// Delete removes key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.items.Delete(key)
}
