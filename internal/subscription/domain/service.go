package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type RenewRequest struct {
	UID         string
	TxnID       string
	PlanName    string
	IsYearly    bool
	IsSixMonths bool
	Price       decimal.Decimal
	Email       string
	StartedAt   time.Time
}

type Service interface {
	Get(ctx context.Context, key tenant.Key, uid string) (Subscription, error)
	// RenewTx activates or renews the subscription on tx.
	RenewTx(ctx context.Context, tx *gorm.DB, key tenant.Key, req RenewRequest) (Subscription, error)
	ListActive(ctx context.Context, after *ScanCursor, limit int) ([]Subscription, error)
	// MarkThreeDayReminderTx and MarkMonthlyNoticeTx set the marker on tx.
	// They report false when the marker was already set or the subscription
	// was renewed since sub was read.
	MarkThreeDayReminderTx(ctx context.Context, tx *gorm.DB, sub Subscription) (bool, error)
	MarkMonthlyNoticeTx(ctx context.Context, tx *gorm.DB, sub Subscription, month string) (bool, error)
}

var (
	ErrInvalidUID            = errors.New("invalid_uid")
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	ErrInvalidRenewalPayment = errors.New("invalid_renewal_payment")
)
