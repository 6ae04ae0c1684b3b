package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() maildomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *maildomain.Item) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, id snowflake.ID) (*maildomain.Item, error) {
	var item maildomain.Item
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND id = ?", key.TenantID, key.AppID, id).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) MarkAttempted(ctx context.Context, db *gorm.DB, key tenant.Key, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&maildomain.Item{}).
		Where("tenant_id = ? AND app_id = ? AND id = ? AND status = ? AND attempted_at IS NULL",
			key.TenantID, key.AppID, id, maildomain.StatusPending).
		Update("attempted_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Finish(ctx context.Context, db *gorm.DB, key tenant.Key, id snowflake.ID, status maildomain.Status, errMsg string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&maildomain.Item{}).
		Where("tenant_id = ? AND app_id = ? AND id = ?", key.TenantID, key.AppID, id).
		Updates(map[string]any{
			"status":       status,
			"error":        errMsg,
			"delivered_at": at,
		}).Error
}

func (r *repo) ListUndelivered(ctx context.Context, db *gorm.DB, key tenant.Key, attemptedBefore time.Time, cursor *pagination.Cursor, limit int) ([]maildomain.Item, error) {
	query := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ?", key.TenantID, key.AppID).
		Where("((status = ?) OR (status = ? AND attempted_at IS NOT NULL AND attempted_at <= ?))",
			maildomain.StatusError, maildomain.StatusPending, attemptedBefore)
	if cursor != nil {
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, int64(afterID))
	}

	var items []maildomain.Item
	err := query.Order("created_at ASC, id ASC").Limit(limit).Find(&items).Error
	return items, err
}
