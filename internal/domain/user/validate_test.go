package user_test

import (
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"simple", "alice", false},
		{"with underscore and digits", "bob_42", false},
		{"uppercase normalizes down", "Alice", false},
		{"surrounding whitespace trimmed", "  alice  ", false},
		{"min length", "abc", false},
		{"max length", "a23456789012345678901234567890", false},
		{"too short", "ab", true},
		{"too long", "a234567890123456789012345678901", true},
		{"dash", "ali-ce", true},
		{"dot", "ali.ce", true},
		{"space inside", "ali ce", true},
		{"empty", "", true},
		{"unicode", "алиса", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := user.ValidateUsername(tc.username)

			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateUsername(%q) = %v, wantErr %v", tc.username, err, tc.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"alice@example.com", false},
		{"ALICE@EXAMPLE.COM", false},
		{"a@b", false},
		{"plainaddress", true},
		{"@example.com", true},
		{"alice@", true},
		{"", true},
	}

	for _, tc := range tests {
		err := user.ValidateEmail(tc.email)

		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateEmail(%q) = %v, wantErr %v", tc.email, err, tc.wantErr)
		}
	}
}

func TestValidateRole(t *testing.T) {
	for _, role := range []string{user.RoleAdmin, user.RoleEditor, user.RoleViewer} {
		if err := user.ValidateRole(role); err != nil {
			t.Errorf("ValidateRole(%q) = %v", role, err)
		}
	}

	for _, role := range []string{"", "superuser", "Admin", "viewer "} {
		if err := user.ValidateRole(role); err == nil {
			t.Errorf("ValidateRole(%q) accepted an unknown role", role)
		}
	}
}

func TestValidateCreateRequest(t *testing.T) {
	valid := user.CreateUserRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "sup3rsecret",
		Name:     "Alice",
	}

	if err := user.ValidateCreateRequest(valid); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*user.CreateUserRequest)
		wantField string
	}{
		{"bad email", func(r *user.CreateUserRequest) { r.Email = "nope" }, "email"},
		{"bad username", func(r *user.CreateUserRequest) { r.Username = "a" }, "username"},
		{"short password", func(r *user.CreateUserRequest) { r.Password = "short" }, "password"},
		{"unknown role", func(r *user.CreateUserRequest) { r.Role = "root" }, "role"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)

			err := user.ValidateCreateRequest(req)
			vErr, ok := err.(*user.ValidationError)

			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tc.wantField {
				t.Fatalf("field = %q, want %q", vErr.Field, tc.wantField)
			}
		})
	}

	// empty role defaults later, so it passes validation
	noRole := valid
	noRole.Role = ""
	if err := user.ValidateCreateRequest(noRole); err != nil {
		t.Fatalf("empty role should be accepted: %v", err)
	}
}

func TestNewFromCreateRequestNormalizes(t *testing.T) {
	u := user.NewFromCreateRequest(user.CreateUserRequest{
		Email:    " Alice@Example.COM ",
		Username: " ALICE ",
		Password: "sup3rsecret",
	}, "hashed")

	if u.Email != "alice@example.com" {
		t.Errorf("email = %q", u.Email)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q", u.Username)
	}
	if u.Role != user.RoleViewer {
		t.Errorf("default role = %q", u.Role)
	}
	if u.ID == "" {
		t.Error("missing id")
	}
	if u.PasswordHash != "hashed" {
		t.Error("password hash not carried")
	}
	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Error("timestamps not initialized together")
	}
}

func TestUpdateRequestEmpty(t *testing.T) {
	if !(user.UpdateUserRequest{}).Empty() {
		t.Fatal("zero request should be empty")
	}

	name := "Alice"
	if (user.UpdateUserRequest{Name: &name}).Empty() {
		t.Fatal("request with a field should not be empty")
	}
}
