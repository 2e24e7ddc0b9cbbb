package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Roles form a closed set; anything else is rejected at validation time.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// UpdateUserRequest enumerates every updatable field explicitly. Nil means
// "leave unchanged"; there is no catch-all merge of arbitrary input fields.
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Username *string `json:"username" binding:"omitempty,min=3,max=30"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
}

func (r UpdateUserRequest) Empty() bool {
	return r.Email == nil && r.Username == nil && r.Password == nil &&
		r.Name == nil && r.Role == nil
}

// Changes is the store-level form of an update: only non-nil fields are
// written. Password material travels here as a hash, never as plaintext,
// and never appears in a cached record, so the store can apply an update
// that was resolved through the cache without clobbering the hash.
type Changes struct {
	Email        *string
	Username     *string
	PasswordHash *string
	Name         *string
	Role         *string
}

func NewFromCreateRequest(req CreateUserRequest, passwordHash string) User {
	now := time.Now().UTC()

	role := req.Role
	if role == "" {
		role = RoleViewer
	}

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(req.Email),
		Username:     NormalizeUsername(req.Username),
		PasswordHash: passwordHash,
		Name:         req.Name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
