package directory

import (
	"context"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
)

// InstrumentStore wraps a UserStore so every logical store op lands in the
// DB latency/error metrics.
func InstrumentStore(store UserStore, prom *observability.Prom) UserStore {
	if prom == nil {
		return store
	}

	return &instrumentedStore{store: store, prom: prom}
}

type instrumentedStore struct {
	store UserStore
	prom  *observability.Prom
}

func (s *instrumentedStore) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User

	err := s.prom.ObserveDB("users.get_by_username", func() error {
		var err error
		u, err = s.store.GetByUsername(ctx, username)
		return err
	})

	return u, err
}

func (s *instrumentedStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := s.prom.ObserveDB("users.get_by_email", func() error {
		var err error
		u, err = s.store.GetByEmail(ctx, email)
		return err
	})

	return u, err
}

func (s *instrumentedStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool

	err := s.prom.ObserveDB("users.exists_by_username", func() error {
		var err error
		exists, err = s.store.ExistsByUsername(ctx, username)
		return err
	})

	return exists, err
}

func (s *instrumentedStore) List(ctx context.Context, q user.ListQuery) ([]user.User, int, error) {
	var (
		items []user.User
		total int
	)

	err := s.prom.ObserveDB("users.list", func() error {
		var err error
		items, total, err = s.store.List(ctx, q)
		return err
	})

	return items, total, err
}

func (s *instrumentedStore) Create(ctx context.Context, u user.User) (user.User, error) {
	var created user.User

	err := s.prom.ObserveDB("users.create", func() error {
		var err error
		created, err = s.store.Create(ctx, u)
		return err
	})

	return created, err
}

func (s *instrumentedStore) Update(ctx context.Context, currentUsername string, ch user.Changes) (user.User, error) {
	var updated user.User

	err := s.prom.ObserveDB("users.update", func() error {
		var err error
		updated, err = s.store.Update(ctx, currentUsername, ch)
		return err
	})

	return updated, err
}

func (s *instrumentedStore) Delete(ctx context.Context, username string) error {
	return s.prom.ObserveDB("users.delete", func() error {
		return s.store.Delete(ctx, username)
	})
}

func (s *instrumentedStore) ListUsernames(ctx context.Context) ([]string, error) {
	var names []string

	err := s.prom.ObserveDB("users.list_usernames", func() error {
		var err error
		names, err = s.store.ListUsernames(ctx)
		return err
	})

	return names, err
}
