package handler

import (
	"time"

	"github.com/musichub/catalog-api/internal/core/domain"
)

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type meResponse struct {
	User       userResponse `json:"user"`
	LoggedInAt int64        `json:"logged_in_at"`
}

type listUsersQuery struct {
	Skip   int    `query:"skip"    validate:"min=0"`
	Limit  int    `query:"limit"   validate:"min=0,max=100"`
	UserID string `query:"user_id"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=guest user artist admin"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
