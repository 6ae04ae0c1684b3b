package domain

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, uid string) (*UserProfile, error)
	Upsert(ctx context.Context, db *gorm.DB, profile *UserProfile) error
}
