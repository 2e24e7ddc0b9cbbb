package user

import (
	"regexp"
	"strings"
)

// Usernames are stored lowercase so the record cache key stays stable no
// matter how the caller spells them.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func ValidateUsername(raw string) error {
	if !usernamePattern.MatchString(NormalizeUsername(raw)) {
		return &ValidationError{
			Field:  "username",
			Reason: "must be 3-30 characters of a-z, 0-9 or underscore",
		}
	}
	return nil
}

func ValidateEmail(raw string) error {
	e := NormalizeEmail(raw)

	// Binding already ran the full email check; this guards non-HTTP callers.
	at := strings.Index(e, "@")
	if at < 1 || at == len(e)-1 || len(e) > 254 {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	return nil
}

func ValidateRole(role string) error {
	if !ValidRole(role) {
		return &ValidationError{Field: "role", Reason: "must be one of admin, editor, viewer"}
	}
	return nil
}

func ValidateName(name string) error {
	if len(name) > 100 {
		return &ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	}
	return nil
}

func ValidatePassword(plain string) error {
	if len(plain) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	return nil
}

func ValidateCreateRequest(req CreateUserRequest) error {
	if err := ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := ValidateUsername(req.Username); err != nil {
		return err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return err
	}
	if err := ValidateName(req.Name); err != nil {
		return err
	}
	if req.Role != "" {
		return ValidateRole(req.Role)
	}
	return nil
}

func ValidateUpdateRequest(req UpdateUserRequest) error {
	if req.Email != nil {
		if err := ValidateEmail(*req.Email); err != nil {
			return err
		}
	}
	if req.Username != nil {
		if err := ValidateUsername(*req.Username); err != nil {
			return err
		}
	}
	if req.Password != nil {
		if err := ValidatePassword(*req.Password); err != nil {
			return err
		}
	}
	if req.Name != nil {
		if err := ValidateName(*req.Name); err != nil {
			return err
		}
	}
	if req.Role != nil {
		return ValidateRole(*req.Role)
	}
	return nil
}
