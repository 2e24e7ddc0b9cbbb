package filter

import (
	"context"
	"sync"
)

// Memory is an exact in-process set satisfying the Filter contract (zero
// false positives is within any error-rate budget). Used in tests and in
// dev mode without Redis. Append-only like the real thing.
type Memory struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{set: make(map[string]struct{})}
}

func (f *Memory) Add(_ context.Context, username string) error {
	f.mu.Lock()
	f.set[username] = struct{}{}
	f.mu.Unlock()

	return nil
}

func (f *Memory) MightContain(_ context.Context, username string) bool {
	f.mu.RLock()
	_, ok := f.set[username]
	f.mu.RUnlock()

	return ok
}
