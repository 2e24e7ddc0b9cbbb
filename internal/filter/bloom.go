package filter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultFilterKey = "users:bloom"

// Bloom is the production Filter, a RedisBloom filter keyed by username.
type Bloom struct {
	rdb *redis.Client
	key string
	log *slog.Logger
}

func NewBloom(rdb *redis.Client, log *slog.Logger) *Bloom {
	return &Bloom{rdb: rdb, key: defaultFilterKey, log: log}
}

// Provision reserves the filter once at process start with a fixed capacity
// and error rate. A filter that already exists is left alone. Errors are
// logged and tolerated: without a filter every lookup fails open to the
// store, which is slower but still correct.
func (b *Bloom) Provision(ctx context.Context, errorRate float64, capacity int64) {
	err := b.rdb.BFReserve(ctx, b.key, errorRate, capacity).Err()

	if err == nil {
		return
	}

	if strings.Contains(err.Error(), "exists") {
		return
	}

	b.log.WarnContext(ctx, "bloom filter provisioning failed", "key", b.key, "err", err)
}

func (b *Bloom) Add(ctx context.Context, username string) error {
	return b.rdb.BFAdd(ctx, b.key, username).Err()
}

func (b *Bloom) MightContain(ctx context.Context, username string) bool {
	exists, err := b.rdb.BFExists(ctx, b.key, username).Result()

	if err != nil {
		// Fail open toward the slower, correct path.
		b.log.WarnContext(ctx, "bloom filter lookup failed", "err", err)
		return true
	}

	return exists
}
