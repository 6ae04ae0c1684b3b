package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, uid string) (*Subscription, error)
	// UpsertRenewal inserts or merges a renewal, clearing every reminder marker.
	UpsertRenewal(ctx context.Context, db *gorm.DB, sub *Subscription) error
	// ListActive pages through active subscriptions of every tenant in key order.
	ListActive(ctx context.Context, db *gorm.DB, after *ScanCursor, limit int) ([]Subscription, error)
	// MarkThreeDayReminder sets the marker only if it is unset for the
	// renewal identified by lastTxnID.
	MarkThreeDayReminder(ctx context.Context, db *gorm.DB, key tenant.Key, uid, lastTxnID string, at time.Time) (bool, error)
	MarkMonthlyNotice(ctx context.Context, db *gorm.DB, key tenant.Key, uid, lastTxnID, month string) (bool, error)
}
