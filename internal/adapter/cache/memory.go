// Package cache provides the page cache backends selected by CACHE_BACKEND.
package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

// Memory is an in-process page cache with FIFO eviction and per-entry TTL.
// It is safe for concurrent use.
type Memory struct {
	capacity int
	now      func() time.Time

	mu  sync.RWMutex
	m   map[string]memEntry
	ord []string
}

// NewMemory returns a cache holding at most capacity entries (minimum 1).
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{capacity: capacity, now: time.Now, m: make(map[string]memEntry, capacity), ord: make([]string, 0, capacity)}
}

func (c *Memory) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		if cur, still := c.m[key]; still && cur.expires.Equal(e.expires) {
			c.removeLocked(key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key. A non-positive ttl keeps the entry until evicted.
func (c *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; exists {
		c.m[key] = e
		return nil
	}
	if len(c.ord) >= c.capacity {
		old := c.ord[0]
		c.ord = c.ord[1:]
		delete(c.m, old)
	}
	c.m[key] = e
	c.ord = append(c.ord, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Purge drops expired entries and returns how many were removed.
func (c *Memory) Purge(_ context.Context) (int64, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k, e := range c.m {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			c.removeLocked(k)
			n++
		}
	}
	return n, nil
}

func (c *Memory) removeLocked(key string) {
	delete(c.m, key)
	for i, k := range c.ord {
		if k == key {
			c.ord = append(c.ord[:i], c.ord[i+1:]...)
			return
		}
	}
}

// None never stores anything.
type None struct{}

func (None) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (None) Set(context.Context, string, string, time.Duration) error { return nil }
