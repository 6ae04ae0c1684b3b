package domain

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type BannerRepository interface {
	Insert(ctx context.Context, db *gorm.DB, banner *Banner) error
	ListByCustomer(ctx context.Context, db *gorm.DB, key tenant.Key, customerID string, limit int) ([]Banner, error)
}
