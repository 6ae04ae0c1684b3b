package repository

import (
	"context"
	"errors"

	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() tokendomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, token *tokendomain.NotificationToken) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "app_id"},
			{Name: "role"},
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(token).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, key tenant.Key, role tokendomain.Role, userID string) (*tokendomain.NotificationToken, error) {
	var token tokendomain.NotificationToken
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND role = ? AND user_id = ?", key.TenantID, key.AppID, role, userID).
		Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *repo) ListByRole(ctx context.Context, db *gorm.DB, key tenant.Key, role tokendomain.Role) ([]tokendomain.NotificationToken, error) {
	var tokens []tokendomain.NotificationToken
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND role = ?", key.TenantID, key.AppID, role).
		Order("user_id ASC").
		Find(&tokens).Error
	return tokens, err
}

func (r *repo) DeleteIfToken(ctx context.Context, db *gorm.DB, key tenant.Key, role tokendomain.Role, userID, token string) (bool, error) {
	res := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND role = ? AND user_id = ? AND token = ?", key.TenantID, key.AppID, role, userID, token).
		Delete(&tokendomain.NotificationToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
