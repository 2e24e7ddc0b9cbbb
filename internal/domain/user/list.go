package user

import "strings"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	SortCreatedAt = "createdAt"
	SortUsername  = "username"
	SortEmail     = "email"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListQuery is the list-query signature: two queries that normalize to the
// same field values are the same query and must hit the same cache entry.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Order  string
	Role   string
	Search string
}

type Page struct {
	Items      []User `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

func validSort(s string) bool {
	switch s {
	case SortCreatedAt, SortUsername, SortEmail:
		return true
	}
	return false
}

// Normalize clamps and defaults every field so that equivalent queries
// collapse onto one canonical signature.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if !validSort(q.Sort) {
		q.Sort = SortCreatedAt
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		q.Order = OrderDesc
	}
	if !ValidRole(q.Role) {
		q.Role = ""
	}
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))

	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func NewPage(items []User, total int, q ListQuery) Page {
	totalPages := 0
	if total > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}

	return Page{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
	}
}
