package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is the in-process Store used in tests and in dev mode when no
// Redis is configured. It never reports Unavailable.
type Memory struct {
	mu sync.RWMutex
	m  map[string]entry
}

type entry struct {
	val []byte
	exp time.Time
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]entry)}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, Outcome) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return nil, Miss
	}

	if !e.exp.IsZero() && now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, Miss
	}

	return e.val, Hit
}

func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.m[key] = entry{val: val, exp: exp}
	c.mu.Unlock()

	return nil
}

func (c *Memory) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()

	return nil
}

func (c *Memory) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	if e, ok := c.m[key]; ok {
		n, _ = strconv.ParseInt(string(e.val), 10, 64)
	}
	n++
	c.m[key] = entry{val: []byte(strconv.FormatInt(n, 10))}

	return n, nil
}
