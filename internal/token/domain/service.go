package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ticketflow/internal/tenant"
)

type RegisterRequest struct {
	Role   string `json:"-"`
	UserID string `json:"-"`
	Token  string `json:"token"`
}

type Service interface {
	Register(ctx context.Context, key tenant.Key, req RegisterRequest) (NotificationToken, error)
	Get(ctx context.Context, key tenant.Key, role Role, userID string) (NotificationToken, error)
	ListByRole(ctx context.Context, key tenant.Key, role Role) ([]NotificationToken, error)
	// Prune removes a token only while it is still the registered one, so a
	// fresh registration racing a failed send is kept.
	Prune(ctx context.Context, key tenant.Key, role Role, userID, token string) (bool, error)
}

var (
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidUserID = errors.New("invalid_user_id")
	ErrInvalidToken  = errors.New("invalid_token")
	ErrTokenNotFound = errors.New("token_not_found")
)
