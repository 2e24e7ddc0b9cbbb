package directory_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/directory"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/filter"
	"github.com/geocoder89/userhub/internal/repo/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingStore wraps the in-memory repo so tests can assert which
// operations actually reached the authoritative store.
type countingStore struct {
	directory.UserStore

	mu     sync.Mutex
	counts map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{
		UserStore: memory.NewUsersRepo(),
		counts:    make(map[string]int),
	}
}

func (s *countingStore) bump(op string) {
	s.mu.Lock()
	s.counts[op]++
	s.mu.Unlock()
}

func (s *countingStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[op]
}

func (s *countingStore) GetByUsername(ctx context.Context, username string) (user.User, error) {
	s.bump("GetByUsername")
	return s.UserStore.GetByUsername(ctx, username)
}

func (s *countingStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	s.bump("ExistsByUsername")
	return s.UserStore.ExistsByUsername(ctx, username)
}

func (s *countingStore) List(ctx context.Context, q user.ListQuery) ([]user.User, int, error) {
	s.bump("List")
	return s.UserStore.List(ctx, q)
}

// brokenCache reports every lookup as unavailable and fails every write.
type brokenCache struct{}

type brokenErr struct{}

func (brokenErr) Error() string { return "cache backend unreachable" }

func (brokenCache) Get(context.Context, string) ([]byte, cache.Outcome) {
	return nil, cache.Unavailable
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return brokenErr{} }
func (brokenCache) Delete(context.Context, ...string) error                  { return brokenErr{} }
func (brokenCache) Incr(context.Context, string) (int64, error)              { return 0, brokenErr{} }

// brokenFilter simulates an unreachable filter backend: adds fail, lookups
// fail open.
type brokenFilter struct{}

func (brokenFilter) Add(context.Context, string) error         { return brokenErr{} }
func (brokenFilter) MightContain(context.Context, string) bool { return true }

func newTestDirectory(t *testing.T) (*directory.Directory, *countingStore) {
	t.Helper()

	store := newCountingStore()
	dir := directory.New(store, cache.NewMemory(), filter.NewMemory(), testLogger(), directory.Options{})

	return dir, store
}

func mustCreate(t *testing.T, dir *directory.Directory, username, email, role string) user.User {
	t.Helper()

	u, err := dir.CreateRecord(context.Background(), user.CreateUserRequest{
		Email:    email,
		Username: username,
		Password: "sup3rsecret",
		Name:     "Test User",
		Role:     role,
	})

	if err != nil {
		t.Fatalf("CreateRecord(%q) failed: %v", username, err)
	}

	return u
}

func TestCheckAvailabilityFastPathSkipsStore(t *testing.T) {
	dir, store := newTestDirectory(t)

	available, err := dir.CheckAvailability(context.Background(), "ghost_user")

	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if !available {
		t.Fatal("expected never-created username to be available")
	}
	if got := store.callCount("ExistsByUsername"); got != 0 {
		t.Fatalf("expected no store round trip on filter fast path, got %d", got)
	}
}

func TestCheckAvailabilityExistingUser(t *testing.T) {
	dir, store := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	available, err := dir.CheckAvailability(context.Background(), "alice")

	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if available {
		t.Fatal("expected existing username to be unavailable")
	}
	if got := store.callCount("ExistsByUsername"); got == 0 {
		t.Fatal("filter hit must be confirmed against the store")
	}
}

func TestCheckAvailabilityRejectsBadUsername(t *testing.T) {
	dir, _ := newTestDirectory(t)

	for _, bad := range []string{"ab", "way too long and full of spaces!!", "no-dashes-allowed"} {
		_, err := dir.CheckAvailability(context.Background(), bad)

		var vErr *user.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError for %q, got %v", bad, err)
		}
	}
}

func TestFindByUsernameReadThrough(t *testing.T) {
	dir, store := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	// create wrote the record through to the cache, so no store read yet
	u, err := dir.FindByUsername(context.Background(), "alice")

	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("got username %q", u.Username)
	}
	if got := store.callCount("GetByUsername"); got != 0 {
		t.Fatalf("expected cache hit after write-through, store reads = %d", got)
	}

	// cached copy never carries password material
	if u.PasswordHash != "" {
		t.Fatal("cached record leaked password hash")
	}
}

func TestFindByUsernameNotFound(t *testing.T) {
	dir, _ := newTestDirectory(t)

	// "missing" is a valid username shape that was simply never created;
	// reads bypass the filter, so the store decides
	_, err := dir.FindByUsername(context.Background(), "missing")

	if err != user.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPaginatedCachesSecondCall(t *testing.T) {
	dir, store := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)
	mustCreate(t, dir, "bob", "bob@example.com", user.RoleViewer)

	q := user.ListQuery{Page: 1, Limit: 20}

	first, err := dir.ListPaginated(context.Background(), q)
	if err != nil {
		t.Fatalf("ListPaginated failed: %v", err)
	}
	if first.Total != 2 || len(first.Items) != 2 {
		t.Fatalf("expected 2 users, got total=%d len=%d", first.Total, len(first.Items))
	}

	listCalls := store.callCount("List")

	second, err := dir.ListPaginated(context.Background(), q)
	if err != nil {
		t.Fatalf("ListPaginated (cached) failed: %v", err)
	}
	if second.Total != 2 {
		t.Fatalf("cached page total = %d", second.Total)
	}
	if got := store.callCount("List"); got != listCalls {
		t.Fatalf("expected cache hit on identical query, store List calls went %d -> %d", listCalls, got)
	}
}

func TestListPaginatedEquivalentQueriesShareEntry(t *testing.T) {
	dir, store := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	// zero values normalize to the canonical defaults
	if _, err := dir.ListPaginated(context.Background(), user.ListQuery{}); err != nil {
		t.Fatalf("ListPaginated failed: %v", err)
	}

	if _, err := dir.ListPaginated(context.Background(), user.ListQuery{
		Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc,
	}); err != nil {
		t.Fatalf("ListPaginated failed: %v", err)
	}

	if got := store.callCount("List"); got != 1 {
		t.Fatalf("equivalent queries should share one cache entry, store List calls = %d", got)
	}
}

func TestMutationsInvalidateListCache(t *testing.T) {
	dir, store := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	q := user.ListQuery{Page: 1, Limit: 20}

	assertListRequeries := func(step string, wantTotal int) {
		t.Helper()

		before := store.callCount("List")
		page, err := dir.ListPaginated(context.Background(), q)

		if err != nil {
			t.Fatalf("%s: ListPaginated failed: %v", step, err)
		}
		if got := store.callCount("List"); got != before+1 {
			t.Fatalf("%s: expected list cache to be invalidated, store List calls %d -> %d", step, before, got)
		}
		if page.Total != wantTotal {
			t.Fatalf("%s: total = %d, want %d", step, page.Total, wantTotal)
		}
	}

	assertListRequeries("initial", 1)

	mustCreate(t, dir, "bob", "bob@example.com", user.RoleEditor)
	assertListRequeries("after create", 2)

	name := "Robert"
	if _, err := dir.UpdateRecord(context.Background(), "bob", user.UpdateUserRequest{Name: &name}); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}
	assertListRequeries("after update", 2)

	if err := dir.DeleteRecord(context.Background(), "bob"); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	assertListRequeries("after delete", 1)
}

func TestUpdateEvictsStaleRecord(t *testing.T) {
	dir, _ := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	name := "Alice Liddell"
	if _, err := dir.UpdateRecord(context.Background(), "alice", user.UpdateUserRequest{Name: &name}); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}

	u, err := dir.FindByUsername(context.Background(), "alice")

	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if u.Name != name {
		t.Fatalf("read stale record after update: name = %q", u.Name)
	}
}

func TestUpdateUsernameMovesRecord(t *testing.T) {
	dir, _ := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	newName := "wonderland"
	updated, err := dir.UpdateRecord(context.Background(), "alice", user.UpdateUserRequest{Username: &newName})

	if err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}
	if updated.Username != "wonderland" {
		t.Fatalf("username = %q", updated.Username)
	}

	if _, err := dir.FindByUsername(context.Background(), "alice"); err != user.ErrNotFound {
		t.Fatalf("old username should be gone from the store, got %v", err)
	}

	u, err := dir.FindByUsername(context.Background(), "wonderland")
	if err != nil {
		t.Fatalf("FindByUsername(new) failed: %v", err)
	}
	if u.ID != updated.ID {
		t.Fatal("renamed record lost its identity")
	}

	// old name stays available again, and the check is store-confirmed
	// because the filter never forgets
	available, err := dir.CheckAvailability(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if !available {
		t.Fatal("old username should be available after rename")
	}
}

func TestUpdateDuplicateEmailRejected(t *testing.T) {
	dir, _ := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)
	mustCreate(t, dir, "bob", "bob@example.com", user.RoleViewer)

	taken := "alice@example.com"
	_, err := dir.UpdateRecord(context.Background(), "bob", user.UpdateUserRequest{Email: &taken})

	if err != user.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateDuplicateRejectedCaseInsensitiveEmail(t *testing.T) {
	dir, _ := newTestDirectory(t)

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	_, err := dir.CreateRecord(context.Background(), user.CreateUserRequest{
		Email:    "ALICE@example.com",
		Username: "alice2",
		Password: "sup3rsecret",
	})

	if err != user.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken for case-variant email, got %v", err)
	}

	_, err = dir.CreateRecord(context.Background(), user.CreateUserRequest{
		Email:    "other@example.com",
		Username: "ALICE",
		Password: "sup3rsecret",
	})

	if err != user.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken for case-variant username, got %v", err)
	}
}

// The end-to-end scenario: filter stays append-only through a delete, while
// availability answers remain correct because the store is re-checked.
func TestLifecycleScenario(t *testing.T) {
	dir, store := newTestDirectory(t)
	ctx := context.Background()

	mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	available, err := dir.CheckAvailability(ctx, "alice")
	if err != nil || available {
		t.Fatalf("alice should be taken (available=%v err=%v)", available, err)
	}

	mustCreate(t, dir, "bob", "bob@example.com", user.RoleViewer)

	q := user.ListQuery{Page: 1, Limit: 20}

	page, err := dir.ListPaginated(ctx, q)
	if err != nil {
		t.Fatalf("ListPaginated failed: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected both users, total=%d len=%d", page.Total, len(page.Items))
	}

	if err := dir.DeleteRecord(ctx, "alice"); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}

	before := store.callCount("List")
	page, err = dir.ListPaginated(ctx, q)
	if err != nil {
		t.Fatalf("ListPaginated after delete failed: %v", err)
	}
	if store.callCount("List") != before+1 {
		t.Fatal("list cache survived a delete")
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Username != "bob" {
		t.Fatalf("expected only bob, got total=%d", page.Total)
	}

	// deletion never removes from the filter, so this goes to the store
	// and still comes back correct
	existsCalls := store.callCount("ExistsByUsername")

	available, err = dir.CheckAvailability(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if !available {
		t.Fatal("deleted username should be available again")
	}
	if store.callCount("ExistsByUsername") != existsCalls+1 {
		t.Fatal("append-only filter should have forced a store re-check")
	}
}

func TestDeleteNotFound(t *testing.T) {
	dir, _ := newTestDirectory(t)

	if err := dir.DeleteRecord(context.Background(), "nobody"); err != user.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// A dead cache and filter backend must degrade performance, never
// correctness: every operation still works against the store.
func TestOperationsSurviveCacheOutage(t *testing.T) {
	store := newCountingStore()
	dir := directory.New(store, brokenCache{}, brokenFilter{}, testLogger(), directory.Options{})
	ctx := context.Background()

	u := mustCreate(t, dir, "alice", "alice@example.com", user.RoleViewer)

	available, err := dir.CheckAvailability(ctx, "alice")
	if err != nil || available {
		t.Fatalf("availability through outage: available=%v err=%v", available, err)
	}

	// filter fails open, so even unknown names get store-confirmed
	available, err = dir.CheckAvailability(ctx, "ghost_user")
	if err != nil || !available {
		t.Fatalf("fail-open availability: available=%v err=%v", available, err)
	}

	got, err := dir.FindByUsername(ctx, "alice")
	if err != nil || got.ID != u.ID {
		t.Fatalf("read through outage failed: %v", err)
	}

	page, err := dir.ListPaginated(ctx, user.ListQuery{})
	if err != nil || page.Total != 1 {
		t.Fatalf("list through outage failed: total=%d err=%v", page.Total, err)
	}

	name := "Still Works"
	if _, err := dir.UpdateRecord(ctx, "alice", user.UpdateUserRequest{Name: &name}); err != nil {
		t.Fatalf("update through outage failed: %v", err)
	}

	if err := dir.DeleteRecord(ctx, "alice"); err != nil {
		t.Fatalf("delete through outage failed: %v", err)
	}
}

func TestSeedFilterPrimesFastPath(t *testing.T) {
	store := newCountingStore()

	seedUser := user.NewFromCreateRequest(user.CreateUserRequest{
		Email:    "carol@example.com",
		Username: "carol",
		Password: "sup3rsecret",
	}, "x")

	if _, err := store.UserStore.Create(context.Background(), seedUser); err != nil {
		t.Fatalf("seeding store failed: %v", err)
	}

	dir := directory.New(store, cache.NewMemory(), filter.NewMemory(), testLogger(), directory.Options{})

	if err := dir.SeedFilter(context.Background()); err != nil {
		t.Fatalf("SeedFilter failed: %v", err)
	}

	available, err := dir.CheckAvailability(context.Background(), "carol")
	if err != nil || available {
		t.Fatalf("seeded username should read taken: available=%v err=%v", available, err)
	}

	available, err = dir.CheckAvailability(context.Background(), "unseeded")
	if err != nil || !available {
		t.Fatalf("unseeded username should fast-path to available: %v", err)
	}
	if got := store.callCount("ExistsByUsername"); got != 1 {
		t.Fatalf("only the seeded name should reach the store, ExistsByUsername = %d", got)
	}
}
