package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	at  time.Time
	exp time.Time
}

// TTLCache is an in-process map whose entries expire after a fixed age.
type TTLCache[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	ttl time.Duration
	now func() time.Time
}

// NewTTLCache creates a cache whose entries live for ttl. A non-positive ttl
// keeps entries until overwritten.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{m: make(map[string]entry[V]), ttl: ttl, now: time.Now}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	v, _, ok := c.GetWithTime(key)
	return v, ok
}

// GetWithTime also returns when the entry was stored.
func (c *TTLCache[V]) GetWithTime(key string) (V, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	var zero V
	if !ok {
		return zero, time.Time{}, false
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		c.mu.Lock()
		if cur, still := c.m[key]; still && cur.exp.Equal(e.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return zero, time.Time{}, false
	}
	return e.v, e.at, true
}

func (c *TTLCache[V]) Set(key string, v V) {
	now := c.now()
	var exp time.Time
	if c.ttl > 0 {
		exp = now.Add(c.ttl)
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, at: now, exp: exp}
	c.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
