package cache

import (
	"sync"
	"time"
)

const defaultMaxEntries = 256

type entry struct {
	b   []byte
	exp time.Time
}

// TTLCache is a small in-process bytes cache with lazy expiry. When the entry
// bound is hit, Set evicts expired entries and then, if still full, drops the
// whole map; the handlers it serves repopulate on the next request.
type TTLCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	max int
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry), max: defaultMaxEntries}
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.m) >= c.max {
		now := time.Now()
		for k, e := range c.m {
			if !e.exp.IsZero() && now.After(e.exp) {
				delete(c.m, k)
			}
		}
		if len(c.m) >= c.max {
			c.m = make(map[string]entry)
		}
	}
	c.m[key] = entry{b: value, exp: exp}
	return nil
}
