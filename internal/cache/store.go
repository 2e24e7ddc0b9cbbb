package cache

import (
	"context"
	"time"
)

// Outcome makes the fail-open policy explicit: a backend failure is its own
// result, not an error the caller has to untangle from a plain miss. The
// values double as prometheus label values.
type Outcome string

const (
	Hit         Outcome = "hit"
	Miss        Outcome = "miss"
	Unavailable Outcome = "unavailable"
)

// Store is a byte-level TTL cache. The cache is an optimization, never a
// correctness dependency: callers must behave identically whether a key is
// absent, expired or the backend is down.
type Store interface {
	// Get returns the raw value and Hit, or nil with Miss/Unavailable.
	Get(ctx context.Context, key string) ([]byte, Outcome)

	// Set stores val under key with the given TTL, last write wins. The
	// returned error is for logging only; callers proceed regardless.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Delete evicts keys best-effort; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Incr atomically increments a counter key, creating it at 1. Backs the
	// versioned list namespace used for wholesale invalidation.
	Incr(ctx context.Context, key string) (int64, error)
}
