package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

const defaultPageLimit = 10

type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the caller's own record and the time the token was issued.
//
// @Summary      Get current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /jwt/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, claims, err := ctxCaller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{
		User:       toUserResponse(user),
		LoggedInAt: claims.IssuedAt.Unix(),
	})
}

// List returns a page of users ordered by id.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip     query     int     false  "Rows to skip"
// @Param        limit    query     int     false  "Page size (max 100)"
// @Param        user_id  query     string  false  "Restrict to one user id"
// @Success      200      {object}  listUsersResponse
// @Failure      401      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Failure      422      {object}  errorResponse
// @Router       /jwt/users/all [get]
func (h *UserHandler) List(c echo.Context) error {
	var q listUsersQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if q.Limit == 0 {
		q.Limit = defaultPageLimit
	}

	users, err := h.users.ListUsers(c.Request().Context(), ports.ListUsersFilter{
		Skip:   q.Skip,
		Limit:  q.Limit,
		UserID: q.UserID,
	})
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, listUsersResponse{Users: out, Skip: q.Skip, Limit: q.Limit})
}

// DeleteAccount removes the caller's own account.
//
// @Summary      Delete own account
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /jwt/users/delete/account [delete]
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	user, _, err := ctxCaller(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteAccount(c.Request().Context(), user); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangeRole sets the role of the account identified by email.
//
// @Summary      Change user role
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        email  path  string             true  "Account email"
// @Param        body   body  changeRoleRequest  true  "New role"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /jwt/users/{email}/role [put]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	email, err := emailParam(c)
	if err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}
	if err := h.users.ChangeRole(c.Request().Context(), email, role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetActive activates or deactivates the account identified by email.
//
// @Summary      Activate or deactivate user
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        email  path  string            true  "Account email"
// @Param        body   body  setActiveRequest  true  "Active flag"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /jwt/users/{email}/active [put]
func (h *UserHandler) SetActive(c echo.Context) error {
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	email, err := emailParam(c)
	if err != nil {
		return err
	}
	if err := h.users.SetActive(c.Request().Context(), email, *req.Active); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// emailParam returns the :email path segment decoded and normalized. Echo
// matches routes on the raw path, so "%40" arrives undecoded.
func emailParam(c echo.Context) (string, error) {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid email in path")
	}
	return domain.NormalizeEmail(email), nil
}
