package repository

import (
	"context"
	"errors"
	"time"

	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, uid string) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND uid = ?", key.TenantID, key.AppID, uid).
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repo) UpsertRenewal(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription) error {
	sub.ReminderSent = false
	sub.Reminder3DaysSentAt = nil
	sub.LastMonthlyReminderSentAt = ""

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "app_id"}, {Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"plan_name",
			"cycle",
			"is_yearly",
			"is_six_months",
			"price",
			"started_at",
			"expires_at",
			"reminder_sent",
			"reminder_3days_sent_at",
			"last_monthly_reminder_sent_at",
			"corporate_email",
			"last_txn_id",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, after *subscriptiondomain.ScanCursor, limit int) ([]subscriptiondomain.Subscription, error) {
	query := db.WithContext(ctx).
		Where("status = ?", subscriptiondomain.StatusActive)
	if after != nil {
		query = query.Where(
			"(tenant_id > ?) OR (tenant_id = ? AND app_id > ?) OR (tenant_id = ? AND app_id = ? AND uid > ?)",
			after.TenantID,
			after.TenantID, after.AppID,
			after.TenantID, after.AppID, after.UID,
		)
	}

	var subs []subscriptiondomain.Subscription
	err := query.Order("tenant_id ASC, app_id ASC, uid ASC").Limit(limit).Find(&subs).Error
	return subs, err
}

func (r *repo) MarkThreeDayReminder(ctx context.Context, db *gorm.DB, key tenant.Key, uid, lastTxnID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("tenant_id = ? AND app_id = ? AND uid = ? AND last_txn_id = ? AND reminder_sent = ?",
			key.TenantID, key.AppID, uid, lastTxnID, false).
		Updates(map[string]any{
			"reminder_sent":          true,
			"reminder_3days_sent_at": at,
			"updated_at":             at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkMonthlyNotice(ctx context.Context, db *gorm.DB, key tenant.Key, uid, lastTxnID, month string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("tenant_id = ? AND app_id = ? AND uid = ? AND last_txn_id = ? AND last_monthly_reminder_sent_at <> ?",
			key.TenantID, key.AppID, uid, lastTxnID, month).
		Update("last_monthly_reminder_sent_at", month)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
