package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

const userColumns = `id, email, username, password_hash, name, role, created_at, updated_at`

// whitelisted sort columns; anything else was rejected during normalization
var sortColumns = map[string]string{
	user.SortCreatedAt: "created_at",
	user.SortUsername:  "username",
	user.SortEmail:     "email",
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

// The users table carries unique indexes on username and lower(email); the
// database is the single arbiter of uniqueness, so concurrent creates race
// here and the loser gets a duplicate error.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return user.ErrEmailTaken
		case strings.Contains(pgErr.ConstraintName, "username"):
			return user.ErrUsernameTaken
		}
	}

	return err
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
		email,
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool

	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)

	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *UsersRepo) List(ctx context.Context, q user.ListQuery) ([]user.User, int, error) {
	baseQuery := `SELECT ` + userColumns + `, COUNT(*) OVER() AS total FROM users`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if q.Role != "" {
		conds = append(conds, fmt.Sprintf("role = $%d", argsPosition))
		args = append(args, q.Role)
		argsPosition++
	}

	if q.Search != "" {
		conds = append(conds, fmt.Sprintf(
			"(username ILIKE $%d OR email ILIKE $%d OR name ILIKE $%d)",
			argsPosition, argsPosition, argsPosition,
		))
		args = append(args, "%"+q.Search+"%")
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	dir := "DESC"
	if q.Order == user.OrderAsc {
		dir = "ASC"
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d",
		sortColumns[q.Sort], dir, argsPosition, argsPosition+1)

	args = append(args, q.Limit, q.Offset())

	rows, err := r.pool.Query(ctx, query, args...)

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	output := make([]user.User, 0, q.Limit)
	total := 0

	for rows.Next() {
		var u user.User
		var t int

		err = rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt, &t)

		if err != nil {
			return nil, 0, err
		}

		total = t
		output = append(output, u)
	}

	err = rows.Err()

	if err != nil {
		return nil, 0, err
	}

	// COUNT(*) OVER() vanishes with the rows on pages past the end, so
	// fall back to a plain count to keep the total honest.
	if len(output) == 0 {
		total, err = r.count(ctx, q)
		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *UsersRepo) count(ctx context.Context, q user.ListQuery) (int, error) {
	query := `SELECT COUNT(*) FROM users`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if q.Role != "" {
		conds = append(conds, fmt.Sprintf("role = $%d", argsPosition))
		args = append(args, q.Role)
		argsPosition++
	}

	if q.Search != "" {
		conds = append(conds, fmt.Sprintf(
			"(username ILIKE $%d OR email ILIKE $%d OR name ILIKE $%d)",
			argsPosition, argsPosition, argsPosition,
		))
		args = append(args, "%"+q.Search+"%")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var total int

	err := r.pool.QueryRow(ctx, query, args...).Scan(&total)

	if err != nil {
		return 0, err
	}

	return total, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		return user.User{}, mapUniqueViolation(err)
	}

	return u, nil
}

// Update writes only the fields present in ch. Uniqueness races on email
// and username still resolve at the unique indexes here.
func (r *UsersRepo) Update(ctx context.Context, currentUsername string, ch user.Changes) (user.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{currentUsername}

	argsPosition := 2

	addSet := func(column string, val *string) {
		if val == nil {
			return
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, *val)
		argsPosition++
	}

	addSet("email", ch.Email)
	addSet("username", ch.Username)
	addSet("password_hash", ch.PasswordHash)
	addSet("name", ch.Name)
	addSet("role", ch.Role)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE username = $1 RETURNING ` + userColumns

	updated, err := scanUser(r.pool.QueryRow(ctx, query, args...))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, mapUniqueViolation(err)
	}

	return updated, nil
}

func (r *UsersRepo) Delete(ctx context.Context, username string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

// ListUsernames feeds the membership filter seed at startup.
func (r *UsersRepo) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT username FROM users`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var usernames []string

	for rows.Next() {
		var name string

		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		usernames = append(usernames, name)
	}

	return usernames, rows.Err()
}
