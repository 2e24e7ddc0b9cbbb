package cache

import (
	"context"
	"log/slog"
)

// Invalidator performs write-through invalidation: it runs synchronously in
// the mutation's control flow, and a mutation must never fail because
// eviction did.
type Invalidator struct {
	store Store
	log   *slog.Logger
}

func NewInvalidator(store Store, log *slog.Logger) *Invalidator {
	return &Invalidator{store: store, log: log}
}

// OnMutation evicts the mutated record's entry (when the username is known)
// and bumps the list namespace version so no cached list survives the
// mutation. Safe to call repeatedly; a second call is a no-op in effect.
func (i *Invalidator) OnMutation(ctx context.Context, username string) {
	if username != "" {
		if err := i.store.Delete(ctx, BuildRecordKey(username)); err != nil {
			i.log.WarnContext(ctx, "record cache eviction failed",
				"username", username, "err", err)
		}
	}

	if _, err := i.store.Incr(ctx, ListVersionKey); err != nil {
		i.log.WarnContext(ctx, "list cache version bump failed", "err", err)
	}
}
