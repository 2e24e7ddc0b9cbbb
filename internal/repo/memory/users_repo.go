package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
)

// UsersRepo is an in-memory authoritative store. It mirrors the Postgres
// repo's contract, including uniqueness enforcement, so the directory can
// run against it in tests and in dev mode.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // keyed by username
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{items: make(map[string]user.User)}
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[username]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	needle := strings.ToLower(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if strings.ToLower(u.Email) == needle {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[username]

	return ok, nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(u.Username, u.Email, ""); err != nil {
		return user.User{}, err
	}

	r.items[u.Username] = u

	return u, nil
}

func (r *UsersRepo) Update(_ context.Context, currentUsername string, ch user.Changes) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[currentUsername]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if ch.Email != nil {
		u.Email = *ch.Email
	}
	if ch.Username != nil {
		u.Username = *ch.Username
	}
	if ch.PasswordHash != nil {
		u.PasswordHash = *ch.PasswordHash
	}
	if ch.Name != nil {
		u.Name = *ch.Name
	}
	if ch.Role != nil {
		u.Role = *ch.Role
	}

	if err := r.checkUnique(u.Username, u.Email, currentUsername); err != nil {
		return user.User{}, err
	}

	u.UpdatedAt = time.Now().UTC()

	delete(r.items, currentUsername)
	r.items[u.Username] = u

	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[username]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, username)

	return nil
}

func (r *UsersRepo) List(_ context.Context, q user.ListQuery) ([]user.User, int, error) {
	r.mu.RLock()

	matched := make([]user.User, 0, len(r.items))

	for _, u := range r.items {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		if q.Search != "" && !matchesSearch(u, q.Search) {
			continue
		}
		matched = append(matched, u)
	}

	r.mu.RUnlock()

	sortUsers(matched, q.Sort, q.Order)

	total := len(matched)

	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func (r *UsersRepo) ListUsernames(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}

	return names, nil
}

// checkUnique must be called with the write lock held.
func (r *UsersRepo) checkUnique(username, email, exceptUsername string) error {
	if _, ok := r.items[username]; ok && username != exceptUsername {
		return user.ErrUsernameTaken
	}

	needle := strings.ToLower(email)

	for name, existing := range r.items {
		if name == exceptUsername {
			continue
		}
		if strings.ToLower(existing.Email) == needle {
			return user.ErrEmailTaken
		}
	}

	return nil
}

func matchesSearch(u user.User, term string) bool {
	return strings.Contains(strings.ToLower(u.Username), term) ||
		strings.Contains(strings.ToLower(u.Email), term) ||
		strings.Contains(strings.ToLower(u.Name), term)
}

func sortUsers(users []user.User, field, order string) {
	cmp := func(a, b user.User) int {
		switch field {
		case user.SortUsername:
			return strings.Compare(a.Username, b.Username)
		case user.SortEmail:
			return strings.Compare(a.Email, b.Email)
		default:
			switch {
			case a.CreatedAt.Before(b.CreatedAt):
				return -1
			case a.CreatedAt.After(b.CreatedAt):
				return 1
			}
			return 0
		}
	}

	sort.Slice(users, func(i, j int) bool {
		c := cmp(users[i], users[j])
		if order == user.OrderDesc {
			c = -c
		}
		if c == 0 {
			// id tiebreak keeps pagination stable, matching the SQL repo
			return users[i].ID < users[j].ID
		}
		return c < 0
	})
}
