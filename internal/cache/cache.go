// Package cache provides the typed key/value cache the prefix store reads through.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a typed key/value cache. Implementations must be safe for concurrent use;
// a missing or expired key is reported with ok=false, never with an error.
type Cache[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Set(key K, value V)
	Invalidate(key K)
}

// TTL is a Cache backed by ttlcache. A zero ttl keeps entries for the life of the
// process; expired entries are dropped lazily on Get, so no janitor goroutine runs.
type TTL[K comparable, V any] struct {
	items *ttlcache.Cache[K, V]
}

// NewTTL builds a TTL cache whose entries expire after ttl (0 = never).
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	if ttl < 0 {
		ttl = 0
	}
	return &TTL[K, V]{
		items: ttlcache.New(
			ttlcache.WithTTL[K, V](ttl),
			ttlcache.WithDisableTouchOnHit[K, V](),
		),
	}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.items.Set(key, value, ttlcache.DefaultTTL)
}

func (c *TTL[K, V]) Invalidate(key K) {
	c.items.Delete(key)
}

var _ Cache[string, string] = (*TTL[string, string])(nil)
