package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/musichub/catalog-api/internal/api/metrics"
	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

const (
	userKey   = "auth.user"
	claimsKey = "auth.claims"
	tokenKey  = "auth.token"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Authenticate resolves the bearer token of the expected type into a user and
// stores user and claims on the context.
func Authenticate(guard ports.AccessGuard, expected domain.TokenType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c)
			if err != nil {
				metrics.GuardRejectionsTotal.WithLabelValues("missing_token").Inc()
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return err
			}

			user, claims, err := guard.Authenticate(c.Request().Context(), token, expected)
			if err != nil {
				return GuardError(c, err)
			}

			c.Set(tokenKey, token)
			c.Set(userKey, user)
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// RequireActive rejects inactive users. It must run after Authenticate.
func RequireActive(guard ports.AccessGuard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := guard.RequireActive(UserFrom(c)); err != nil {
				return GuardError(c, err)
			}
			return next(c)
		}
	}
}

// Require composes Authenticate, RequireActive and, when the policy names
// roles, RequireRole. The stages run in that order and stop at the first failure.
func Require(guard ports.AccessGuard, policy ports.Policy) []echo.MiddlewareFunc {
	chain := []echo.MiddlewareFunc{
		Authenticate(guard, policy.TokenType),
		RequireActive(guard),
	}
	if len(policy.Roles) > 0 {
		chain = append(chain, RequireRole(guard, policy.Roles...))
	}
	return chain
}

// UserFrom returns the user stored by Authenticate, or nil.
func UserFrom(c echo.Context) *domain.User {
	u, _ := c.Get(userKey).(*domain.User)
	return u
}

// ClaimsFrom returns the token claims stored by Authenticate, or nil.
func ClaimsFrom(c echo.Context) *domain.Claims {
	cl, _ := c.Get(claimsKey).(*domain.Claims)
	return cl
}

// TokenFrom returns the raw bearer token accepted by Authenticate.
func TokenFrom(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

// GuardError converts a guard failure into an HTTP error. Authentication
// failures become 401 with a Bearer challenge, authorization failures 403.
// Store failures pass through untouched for the central error handler.
func GuardError(c echo.Context, err error) error {
	var (
		status int
		msg    string
		reason string
	)
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		status, msg, reason = http.StatusUnauthorized, "invalid token", "invalid_token"
	case errors.Is(err, domain.ErrInvalidTokenType):
		status, msg, reason = http.StatusUnauthorized, "invalid token type", "invalid_token_type"
	case errors.Is(err, domain.ErrTokenSubjectMissing):
		status, msg, reason = http.StatusUnauthorized, "token subject missing", "subject_missing"
	case errors.Is(err, domain.ErrUserNotFound):
		status, msg, reason = http.StatusUnauthorized, "user not found", "user_not_found"
	case errors.Is(err, domain.ErrInactiveUser):
		status, msg, reason = http.StatusForbidden, "inactive user", "inactive_user"
	case errors.Is(err, domain.ErrInsufficientRights):
		status, msg, reason = http.StatusForbidden, "not enough rights", "insufficient_rights"
	default:
		metrics.GuardRejectionsTotal.WithLabelValues("store_error").Inc()
		return err
	}

	metrics.GuardRejectionsTotal.WithLabelValues(reason).Inc()
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}
