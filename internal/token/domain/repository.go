package domain

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, token *NotificationToken) error
	Find(ctx context.Context, db *gorm.DB, key tenant.Key, role Role, userID string) (*NotificationToken, error)
	ListByRole(ctx context.Context, db *gorm.DB, key tenant.Key, role Role) ([]NotificationToken, error)
	DeleteIfToken(ctx context.Context, db *gorm.DB, key tenant.Key, role Role, userID, token string) (bool, error)
}
