package repository

import (
	"context"

	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() notificationdomain.BannerRepository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, banner *notificationdomain.Banner) error {
	return db.WithContext(ctx).Create(banner).Error
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, key tenant.Key, customerID string, limit int) ([]notificationdomain.Banner, error) {
	var banners []notificationdomain.Banner
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND customer_id = ?", key.TenantID, key.AppID, customerID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&banners).Error
	return banners, err
}
