package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

// RequireRole enforces role-based access control on the authenticated user.
func RequireRole(guard ports.AccessGuard, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := guard.RequireRole(UserFrom(c), allowedRoles...); err != nil {
				return GuardError(c, err)
			}
			return next(c)
		}
	}
}
