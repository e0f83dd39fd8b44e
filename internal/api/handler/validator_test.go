package handler

import (
	"strings"
	"testing"
)

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"missing username", &signupRequest{Email: "ana@example.com", Password: "pw"}, "username is required"},
		{"short username", &signupRequest{Username: "an", Email: "ana@example.com", Password: "pw"}, "username must be at least 3 characters"},
		{"bad email", &signupRequest{Username: "ana", Email: "ana", Password: "pw"}, "email must be a valid email address"},
		{"long password", &signupRequest{Username: "ana", Email: "ana@example.com", Password: strings.Repeat("x", 73)}, "password must be at most 72 characters, the bcrypt limit"},
		{"unknown role", &changeRoleRequest{Role: "root"}, "role must be one of: guest, user, artist, admin"},
		{"negative skip", &listUsersQuery{Skip: -1}, "skip must be >= 0"},
		{"large limit", &listUsersQuery{Limit: 500}, "limit must be <= 100"},
		{"missing active", &setActiveRequest{}, "active is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.in)
			if err == nil {
				t.Fatalf("expected a validation error")
			}
			if err.Error() != tc.want {
				t.Fatalf("got %q, want %q", err.Error(), tc.want)
			}
		})
	}

	if err := v.Validate(&signupRequest{Username: "ana", Email: "ana@example.com", Password: "pw"}); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}
