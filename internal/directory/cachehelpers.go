package directory

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
)

// Cache plumbing for the directory. Every failure in here is absorbed:
// a broken cache slows reads down, it never breaks them.

func (d *Directory) getCachedUser(ctx context.Context, key string) (user.User, bool) {
	raw, outcome := d.cache.Get(ctx, key)
	d.metrics.ObserveCacheLookup(observability.TierRecord, string(outcome))

	if outcome != cache.Hit {
		if outcome == cache.Unavailable {
			d.log.WarnContext(ctx, "record cache unavailable, falling through to store", "key", key)
		}
		return user.User{}, false
	}

	var u user.User

	if err := json.Unmarshal(raw, &u); err != nil {
		d.log.WarnContext(ctx, "record cache entry corrupt, evicting", "key", key, "err", err)
		_ = d.cache.Delete(ctx, key)
		return user.User{}, false
	}

	return u, true
}

func (d *Directory) setCachedUser(ctx context.Context, key string, u user.User, ttl time.Duration) {
	// PasswordHash carries json:"-", so hashes never reach the cache.
	raw, err := json.Marshal(u)

	if err != nil {
		d.log.WarnContext(ctx, "record cache marshal failed", "key", key, "err", err)
		return
	}

	if err := d.cache.Set(ctx, key, raw, ttl); err != nil {
		d.log.WarnContext(ctx, "record cache set failed", "key", key, "err", err)
	}
}

func (d *Directory) getCachedPage(ctx context.Context, key string) (user.Page, bool) {
	raw, outcome := d.cache.Get(ctx, key)
	d.metrics.ObserveCacheLookup(observability.TierList, string(outcome))

	if outcome != cache.Hit {
		return user.Page{}, false
	}

	var page user.Page

	if err := json.Unmarshal(raw, &page); err != nil {
		d.log.WarnContext(ctx, "list cache entry corrupt, evicting", "key", key, "err", err)
		_ = d.cache.Delete(ctx, key)
		return user.Page{}, false
	}

	return page, true
}

func (d *Directory) setCachedPage(ctx context.Context, key string, page user.Page) {
	raw, err := json.Marshal(page)

	if err != nil {
		d.log.WarnContext(ctx, "list cache marshal failed", "key", key, "err", err)
		return
	}

	if err := d.cache.Set(ctx, key, raw, d.listTTL); err != nil {
		d.log.WarnContext(ctx, "list cache set failed", "key", key, "err", err)
	}
}

// listVersion resolves the current list namespace version. A missing key is
// version zero (no mutation yet); an unavailable backend disables the list
// cache for this request so a stale pre-outage version can never be served.
func (d *Directory) listVersion(ctx context.Context) (int64, bool) {
	raw, outcome := d.cache.Get(ctx, cache.ListVersionKey)

	switch outcome {
	case cache.Miss:
		return 0, true
	case cache.Unavailable:
		d.log.WarnContext(ctx, "list cache unavailable, serving from store")
		return 0, false
	}

	version, err := strconv.ParseInt(string(raw), 10, 64)

	if err != nil {
		d.log.WarnContext(ctx, "list version corrupt, bypassing list cache", "err", err)
		return 0, false
	}

	return version, true
}
