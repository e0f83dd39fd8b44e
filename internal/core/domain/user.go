package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is a privilege level. Roles are ordered: guest < user < artist < admin.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleUser   Role = "user"
	RoleArtist Role = "artist"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleGuest:  0,
	RoleUser:   1,
	RoleArtist: 2,
	RoleAdmin:  3,
}

// ParseRole converts s into a known Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	a, ok := roleRank[r]
	if !ok {
		return false
	}
	return a >= roleRank[other]
}

func (r Role) String() string { return string(r) }

// User models an account in the catalog.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Active       bool      `json:"active"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser builds a freshly registered account: guest role, active.
func NewUser(username, email string, passwordHash []byte, now time.Time) *User {
	return &User{
		Username:     username,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Active:       true,
		Role:         RoleGuest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail is the canonical form used for lookups and as token subject.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
