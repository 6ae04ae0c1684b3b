package repository

import (
	"context"
	"errors"

	otpdomain "github.com/smallbiznis/ticketflow/internal/otp/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() otpdomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, code *otpdomain.Code) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "app_id"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "attempts", "expires_at", "created_at"}),
	}).Create(code).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, key tenant.Key, email string) (*otpdomain.Code, error) {
	var code otpdomain.Code
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND email = ?", key.TenantID, key.AppID, email).
		Take(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repo) ClaimAttempt(ctx context.Context, db *gorm.DB, key tenant.Key, email, codeHash string, limit int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&otpdomain.Code{}).
		Where("tenant_id = ? AND app_id = ? AND email = ? AND code_hash = ? AND attempts < ?",
			key.TenantID, key.AppID, email, codeHash, limit).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Consume(ctx context.Context, db *gorm.DB, key tenant.Key, email, codeHash string) (bool, error) {
	res := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND email = ? AND code_hash = ?", key.TenantID, key.AppID, email, codeHash).
		Delete(&otpdomain.Code{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, key tenant.Key, email string) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND email = ?", key.TenantID, key.AppID, email).
		Delete(&otpdomain.Code{}).Error
}
