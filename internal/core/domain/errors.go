package domain

import "errors"

// Expected, user-facing conditions. Anything else reaching the transport is an internal error.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInactiveUser        = errors.New("inactive user")
	ErrUserExists          = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidTokenType    = errors.New("invalid token type")
	ErrTokenSubjectMissing = errors.New("token subject missing")
	ErrInsufficientRights  = errors.New("insufficient rights")
	ErrInvalidRole         = errors.New("invalid role")
)

// Internal failures. They map to 5xx and are logged.
var (
	ErrStoreUnavailable = errors.New("user store unavailable")
	ErrMalformedHash    = errors.New("malformed password hash")
)
