package db

import (
	"context"
	"errors"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/directory"
	"github.com/geocoder89/userhub/internal/domain/user"
)

// EnsureAdminUser bootstraps the admin account from config. Creating it
// through the directory keeps the membership filter and caches in step with
// the store; an already-taken email or username means a previous boot did
// the work.
func EnsureAdminUser(ctx context.Context, dir *directory.Directory, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := dir.CreateRecord(ctx, user.CreateUserRequest{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
		Role:     user.RoleAdmin,
	})

	if errors.Is(err, user.ErrEmailTaken) || errors.Is(err, user.ErrUsernameTaken) {
		return nil
	}

	return err
}
