// Package filter wraps a probabilistic membership set over usernames.
//
// The filter answers "definitely absent" or "might exist", never the
// reverse: it has no false negatives, a bounded false-positive rate, and it
// is append-only — deleting a user does not remove the username. It is a
// hint for skipping store lookups, never a source of truth.
package filter

import "context"

type Filter interface {
	// Add inserts a username. Idempotent. The returned error is for
	// logging; filter failures must never fail the surrounding operation.
	Add(ctx context.Context, username string) error

	// MightContain returns false only when the username is provably
	// absent. Any backend trouble fails open to true so the caller falls
	// back to the authoritative store.
	MightContain(ctx context.Context, username string) bool
}
