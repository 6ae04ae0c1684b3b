package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"gorm.io/gorm"
)

// Claim identifies the current owner of a transaction's lifecycle run.
type Claim struct {
	Key       tenant.Key
	TxnID     string
	Token     string
	ClaimedAt time.Time
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, txnID string) (*Transaction, error)
	Upsert(ctx context.Context, db *gorm.DB, txn *Transaction) error

	// Claim takes the lifecycle of a successful, unfinished, non-failed
	// transaction. A claim older than staleBefore may be taken over.
	Claim(ctx context.Context, db *gorm.DB, claim Claim, staleBefore time.Time) (bool, error)
	// AdvanceStep commits step and extra columns while claim is still held.
	AdvanceStep(ctx context.Context, db *gorm.DB, claim Claim, step Step, columns map[string]any) error
	Release(ctx context.Context, db *gorm.DB, claim Claim) error
	RecordFailure(ctx context.Context, db *gorm.DB, claim Claim, message string) error
	ClearFailure(ctx context.Context, db *gorm.DB, key tenant.Key, txnID string) (bool, error)
	ListStuck(ctx context.Context, db *gorm.DB, key tenant.Key, cursor *pagination.Cursor, limit int) ([]Transaction, error)
}
