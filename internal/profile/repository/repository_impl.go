package repository

import (
	"context"
	"errors"

	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() profiledomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, uid string) (*profiledomain.UserProfile, error) {
	var profile profiledomain.UserProfile
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND uid = ?", key.TenantID, key.AppID, uid).
		Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, profile *profiledomain.UserProfile) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "app_id"}, {Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "phone", "updated_at"}),
	}).Create(profile).Error
}
