// Package directory orchestrates the three-tier identity lookup path:
// membership filter, record/list cache, authoritative store. The first two
// tiers are optimizations that fail open; the store is the only source of
// truth for existence and uniqueness.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/filter"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/security"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// UserStore is the authoritative store contract. Implementations must
// enforce username/email uniqueness themselves; the directory never trusts
// the cache for either.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, q user.ListQuery) ([]user.User, int, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, currentUsername string, ch user.Changes) (user.User, error)
	Delete(ctx context.Context, username string) error
	ListUsernames(ctx context.Context) ([]string, error)
}

const (
	defaultRecordTTL = time.Hour
	// List results are more volatile than single records, so they get a
	// much shorter leash.
	defaultListTTL = 5 * time.Minute
)

type Directory struct {
	store   UserStore
	cache   cache.Store
	filter  filter.Filter
	inv     *cache.Invalidator
	log     *slog.Logger
	metrics *observability.Prom

	recordTTL time.Duration
	listTTL   time.Duration
	tracer    trace.Tracer
}

type Options struct {
	RecordTTL time.Duration
	ListTTL   time.Duration
	Metrics   *observability.Prom
}

func New(store UserStore, cacheStore cache.Store, f filter.Filter, log *slog.Logger, opts Options) *Directory {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.ListTTL <= 0 {
		opts.ListTTL = defaultListTTL
	}

	return &Directory{
		store:     store,
		cache:     cacheStore,
		filter:    f,
		inv:       cache.NewInvalidator(cacheStore, log),
		log:       log,
		metrics:   opts.Metrics,
		recordTTL: opts.RecordTTL,
		listTTL:   opts.ListTTL,
		tracer:    otel.Tracer("userhub/directory"),
	}
}

// CheckAvailability reports whether a username is free to register. The
// filter only ever shortcuts the negative case: "definitely absent" answers
// without touching the store, while any "might exist" is re-verified there,
// because of both false positives and the append-only-on-delete design.
func (d *Directory) CheckAvailability(ctx context.Context, username string) (bool, error) {
	ctx, span := d.tracer.Start(ctx, "directory.CheckAvailability")
	defer span.End()

	if err := user.ValidateUsername(username); err != nil {
		return false, err
	}
	username = user.NormalizeUsername(username)

	if !d.filter.MightContain(ctx, username) {
		d.metrics.ObserveCacheLookup(observability.TierFilter, string(cache.Miss))
		return true, nil
	}
	d.metrics.ObserveCacheLookup(observability.TierFilter, string(cache.Hit))

	exists, err := d.store.ExistsByUsername(ctx, username)

	if err != nil {
		return false, err
	}

	return !exists, nil
}

// FindByUsername is a read-through lookup: record cache first, then the
// store, populating the cache on the way back.
func (d *Directory) FindByUsername(ctx context.Context, username string) (user.User, error) {
	ctx, span := d.tracer.Start(ctx, "directory.FindByUsername")
	defer span.End()

	if err := user.ValidateUsername(username); err != nil {
		return user.User{}, err
	}
	username = user.NormalizeUsername(username)

	key := cache.BuildRecordKey(username)

	if u, ok := d.getCachedUser(ctx, key); ok {
		return u, nil
	}

	u, err := d.store.GetByUsername(ctx, username)

	if err != nil {
		return user.User{}, err
	}

	d.setCachedUser(ctx, key, u, d.recordTTL)

	return u, nil
}

// FindByEmail always hits the store. Email lookups are rare and sit on the
// uniqueness-critical signup/update path, so they get no cache tier.
func (d *Directory) FindByEmail(ctx context.Context, email string) (user.User, error) {
	ctx, span := d.tracer.Start(ctx, "directory.FindByEmail")
	defer span.End()

	if err := user.ValidateEmail(email); err != nil {
		return user.User{}, err
	}

	return d.store.GetByEmail(ctx, user.NormalizeEmail(email))
}

// ListPaginated serves cached pages keyed by the normalized query signature
// under the current list namespace version.
func (d *Directory) ListPaginated(ctx context.Context, q user.ListQuery) (user.Page, error) {
	ctx, span := d.tracer.Start(ctx, "directory.ListPaginated")
	defer span.End()

	q = q.Normalize()

	version, versionOK := d.listVersion(ctx)

	var key string

	if versionOK {
		key = cache.BuildListKey(version, q)

		if page, ok := d.getCachedPage(ctx, key); ok {
			return page, nil
		}
	}

	items, total, err := d.store.List(ctx, q)

	if err != nil {
		return user.Page{}, err
	}

	page := user.NewPage(items, total, q)

	if versionOK {
		d.setCachedPage(ctx, key, page)
	}

	return page, nil
}

// CreateRecord enforces uniqueness against the store, persists, then brings
// the filter and caches up to date. Two concurrent creates for the same
// username race at the store's unique index, not here.
func (d *Directory) CreateRecord(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	ctx, span := d.tracer.Start(ctx, "directory.CreateRecord")
	defer span.End()

	if err := user.ValidateCreateRequest(req); err != nil {
		return user.User{}, err
	}

	email := user.NormalizeEmail(req.Email)
	username := user.NormalizeUsername(req.Username)

	if err := d.checkEmailFree(ctx, email); err != nil {
		return user.User{}, err
	}
	if err := d.checkUsernameFree(ctx, username); err != nil {
		return user.User{}, err
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		return user.User{}, err
	}

	created, err := d.store.Create(ctx, user.NewFromCreateRequest(req, hash))

	if err != nil {
		return user.User{}, err
	}

	if err := d.filter.Add(ctx, created.Username); err != nil {
		// Filter unavailability degrades to "assume might exist".
		d.log.WarnContext(ctx, "membership filter add failed",
			"username", created.Username, "err", err)
	}

	// write-through for the fresh record, then drop every cached list
	d.setCachedUser(ctx, cache.BuildRecordKey(created.Username), created, d.recordTTL)
	d.inv.OnMutation(ctx, "")
	d.metrics.ObserveInvalidation()

	return created, nil
}

// UpdateRecord applies an enumerated set of field changes. On a username
// change both the old and the new record keys are evicted; the new entry is
// lazily repopulated on the next read.
func (d *Directory) UpdateRecord(ctx context.Context, username string, req user.UpdateUserRequest) (user.User, error) {
	ctx, span := d.tracer.Start(ctx, "directory.UpdateRecord")
	defer span.End()

	if req.Empty() {
		return user.User{}, &user.ValidationError{Field: "body", Reason: "no updatable fields provided"}
	}
	if err := user.ValidateUpdateRequest(req); err != nil {
		return user.User{}, err
	}

	current, err := d.FindByUsername(ctx, username)

	if err != nil {
		return user.User{}, err
	}

	username = current.Username

	ch := user.Changes{Name: req.Name, Role: req.Role}

	if req.Email != nil {
		email := user.NormalizeEmail(*req.Email)

		if email != user.NormalizeEmail(current.Email) {
			if err := d.checkEmailFree(ctx, email); err != nil {
				return user.User{}, err
			}
		}
		ch.Email = &email
	}

	if req.Username != nil {
		newUsername := user.NormalizeUsername(*req.Username)

		if newUsername != username {
			if err := d.checkUsernameFree(ctx, newUsername); err != nil {
				return user.User{}, err
			}
		}
		ch.Username = &newUsername
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			return user.User{}, err
		}
		ch.PasswordHash = &hash
	}

	updated, err := d.store.Update(ctx, username, ch)

	if err != nil {
		return user.User{}, err
	}

	d.inv.OnMutation(ctx, username)

	if updated.Username != username {
		if err := d.cache.Delete(ctx, cache.BuildRecordKey(updated.Username)); err != nil {
			d.log.WarnContext(ctx, "record cache eviction failed",
				"username", updated.Username, "err", err)
		}
		// Usernames are never removed from the filter, so the old name
		// keeps reading as "might exist" until the store says otherwise.
		if err := d.filter.Add(ctx, updated.Username); err != nil {
			d.log.WarnContext(ctx, "membership filter add failed",
				"username", updated.Username, "err", err)
		}
	}

	d.metrics.ObserveInvalidation()

	return updated, nil
}

// DeleteRecord removes the record and its cache entries. The membership
// filter is intentionally left untouched: it is append-only, and every
// positive answer it gives is re-verified against the store anyway.
func (d *Directory) DeleteRecord(ctx context.Context, username string) error {
	ctx, span := d.tracer.Start(ctx, "directory.DeleteRecord")
	defer span.End()

	if err := user.ValidateUsername(username); err != nil {
		return err
	}
	username = user.NormalizeUsername(username)

	if err := d.store.Delete(ctx, username); err != nil {
		return err
	}

	d.inv.OnMutation(ctx, username)
	d.metrics.ObserveInvalidation()

	return nil
}

// SeedFilter loads every existing username into the membership filter.
// Called once at startup; add failures are logged and skipped since the
// filter degrades gracefully.
func (d *Directory) SeedFilter(ctx context.Context) error {
	usernames, err := d.store.ListUsernames(ctx)

	if err != nil {
		return err
	}

	seeded := 0

	for _, name := range usernames {
		if err := d.filter.Add(ctx, name); err != nil {
			d.log.WarnContext(ctx, "membership filter seed failed",
				"username", name, "err", err)
			continue
		}
		seeded++
	}

	d.metrics.SetFilterSeedSize(seeded)
	d.log.InfoContext(ctx, "membership filter seeded", "usernames", seeded)

	return nil
}

func (d *Directory) checkEmailFree(ctx context.Context, email string) error {
	_, err := d.store.GetByEmail(ctx, email)

	if err == nil {
		return user.ErrEmailTaken
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	return nil
}

func (d *Directory) checkUsernameFree(ctx context.Context, username string) error {
	exists, err := d.store.ExistsByUsername(ctx, username)

	if err != nil {
		return err
	}
	if exists {
		return user.ErrUsernameTaken
	}

	return nil
}
