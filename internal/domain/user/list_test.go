package user_test

import (
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
)

func TestListQueryNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   user.ListQuery
		want user.ListQuery
	}{
		{
			"zero value gets defaults",
			user.ListQuery{},
			user.ListQuery{Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc},
		},
		{
			"negative page clamps to first",
			user.ListQuery{Page: -3, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc},
			user.ListQuery{Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc},
		},
		{
			"oversized limit clamps to max",
			user.ListQuery{Page: 1, Limit: 500, Sort: user.SortCreatedAt, Order: user.OrderDesc},
			user.ListQuery{Page: 1, Limit: 100, Sort: user.SortCreatedAt, Order: user.OrderDesc},
		},
		{
			"unknown sort and order fall back",
			user.ListQuery{Page: 1, Limit: 20, Sort: "password_hash", Order: "sideways"},
			user.ListQuery{Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc},
		},
		{
			"unknown role filter dropped",
			user.ListQuery{Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc, Role: "root"},
			user.ListQuery{Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc},
		},
		{
			"search lowercased and trimmed",
			user.ListQuery{Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc, Search: "  ALIce "},
			user.ListQuery{Page: 1, Limit: 20, Sort: user.SortCreatedAt, Order: user.OrderDesc, Search: "alice"},
		},
		{
			"valid query untouched",
			user.ListQuery{Page: 3, Limit: 50, Sort: user.SortEmail, Order: user.OrderAsc, Role: user.RoleAdmin, Search: "bob"},
			user.ListQuery{Page: 3, Limit: 50, Sort: user.SortEmail, Order: user.OrderAsc, Role: user.RoleAdmin, Search: "bob"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Fatalf("Normalize() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestListQueryOffset(t *testing.T) {
	q := user.ListQuery{Page: 3, Limit: 20}

	if got := q.Offset(); got != 40 {
		t.Fatalf("Offset() = %d", got)
	}
}

func TestNewPage(t *testing.T) {
	items := []user.User{{Username: "alice"}}
	q := user.ListQuery{Page: 2, Limit: 10}

	page := user.NewPage(items, 25, q)

	if page.Total != 25 || page.Page != 2 || page.Limit != 10 {
		t.Fatalf("page meta = %+v", page)
	}
	if page.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", page.TotalPages)
	}

	empty := user.NewPage(nil, 0, q)
	if empty.TotalPages != 0 {
		t.Fatalf("empty TotalPages = %d", empty.TotalPages)
	}
}
