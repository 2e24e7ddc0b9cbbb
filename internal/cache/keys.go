package cache

import (
	"strconv"

	"github.com/geocoder89/userhub/internal/domain/user"
)

const (
	recordKeyPrefix = "user:"
	listKeyPrefix   = "users:list:"

	// ListVersionKey holds the current list namespace version. Bumping it
	// strands every outstanding list entry; they age out by TTL.
	ListVersionKey = listKeyPrefix + "ver"
)

// BuildRecordKey maps a stored (normalized) username to its cache key.
func BuildRecordKey(username string) string {
	return recordKeyPrefix + username
}

// BuildListKey renders a normalized list query into a deterministic key.
// Queries that normalize to the same signature always share a key; a change
// in any field, or a version bump, produces a different one.
func BuildListKey(version int64, q user.ListQuery) string {
	role := q.Role
	if role == "" {
		role = "all"
	}
	search := q.Search
	if search == "" {
		search = "none"
	}

	return listKeyPrefix + "v" + strconv.FormatInt(version, 10) +
		":page=" + strconv.Itoa(q.Page) +
		":limit=" + strconv.Itoa(q.Limit) +
		":sort=" + q.Sort +
		":order=" + q.Order +
		":role=" + role +
		":search=" + search
}
