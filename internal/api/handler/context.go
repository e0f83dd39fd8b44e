package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/musichub/catalog-api/internal/api/middleware"
	"github.com/musichub/catalog-api/internal/core/domain"
)

// ctxCaller returns the user and claims injected by the guard middleware.
// Both must be present; a handler reached without them is mis-routed, so
// the request is rejected with 401 rather than served anonymously.
func ctxCaller(c echo.Context) (*domain.User, *domain.Claims, error) {
	user := middleware.UserFrom(c)
	claims := middleware.ClaimsFrom(c)
	if user == nil || claims == nil {
		return nil, nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return user, claims, nil
}
