package repository

import (
	"context"
	"errors"
	"time"

	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, txnID string) (*paymentdomain.Transaction, error) {
	var txn paymentdomain.Transaction
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND txn_id = ?", key.TenantID, key.AppID, txnID).
		Take(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Upsert writes the ingest-owned columns. Lifecycle columns are never
// touched by ingest.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, txn *paymentdomain.Transaction) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "app_id"}, {Name: "txn_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"uid",
			"amount",
			"plan_name",
			"is_yearly",
			"is_six_months",
			"payment_method",
			"merchant_txn_no",
			"updated_at",
		}),
	}).Create(txn).Error
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, claim paymentdomain.Claim, staleBefore time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_transactions
		 SET lifecycle_claim_token = ?, lifecycle_claimed_at = ?
		 WHERE tenant_id = ? AND app_id = ? AND txn_id = ?
		   AND status = ?
		   AND lifecycle_step <> ?
		   AND lifecycle_error = ''
		   AND (lifecycle_claimed_at IS NULL OR lifecycle_claimed_at < ?)`,
		claim.Token,
		claim.ClaimedAt,
		claim.Key.TenantID,
		claim.Key.AppID,
		claim.TxnID,
		paymentdomain.StatusSuccess,
		paymentdomain.StepCompleted,
		staleBefore,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) AdvanceStep(ctx context.Context, db *gorm.DB, claim paymentdomain.Claim, step paymentdomain.Step, columns map[string]any) error {
	updates := map[string]any{"lifecycle_step": step}
	for k, v := range columns {
		updates[k] = v
	}
	res := owned(ctx, db, claim).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return paymentdomain.ErrClaimLost
	}
	return nil
}

func (r *repo) Release(ctx context.Context, db *gorm.DB, claim paymentdomain.Claim) error {
	return owned(ctx, db, claim).Updates(map[string]any{
		"lifecycle_claim_token": "",
		"lifecycle_claimed_at":  nil,
	}).Error
}

func (r *repo) RecordFailure(ctx context.Context, db *gorm.DB, claim paymentdomain.Claim, message string) error {
	if message == "" {
		message = "unknown error"
	}
	return owned(ctx, db, claim).Updates(map[string]any{
		"lifecycle_error":       message,
		"lifecycle_claim_token": "",
		"lifecycle_claimed_at":  nil,
	}).Error
}

func (r *repo) ClearFailure(ctx context.Context, db *gorm.DB, key tenant.Key, txnID string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&paymentdomain.Transaction{}).
		Where("tenant_id = ? AND app_id = ? AND txn_id = ? AND lifecycle_error <> ''", key.TenantID, key.AppID, txnID).
		Update("lifecycle_error", "")
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListStuck(ctx context.Context, db *gorm.DB, key tenant.Key, cursor *pagination.Cursor, limit int) ([]paymentdomain.Transaction, error) {
	query := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND status = ? AND lifecycle_step <> ?",
			key.TenantID, key.AppID, paymentdomain.StatusSuccess, paymentdomain.StepCompleted)
	if cursor != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND txn_id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var txns []paymentdomain.Transaction
	err := query.Order("created_at ASC, txn_id ASC").Limit(limit).Find(&txns).Error
	return txns, err
}

func owned(ctx context.Context, db *gorm.DB, claim paymentdomain.Claim) *gorm.DB {
	return db.WithContext(ctx).
		Model(&paymentdomain.Transaction{}).
		Where("tenant_id = ? AND app_id = ? AND txn_id = ? AND lifecycle_claim_token = ?",
			claim.Key.TenantID, claim.Key.AppID, claim.TxnID, claim.Token)
}
