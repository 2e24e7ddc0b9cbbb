package user

import "errors"

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already in use")
	ErrUsernameTaken = errors.New("username already taken")
)

// ValidationError is caught before any cache or store access happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func IsDuplicate(err error) bool {
	return errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken)
}
