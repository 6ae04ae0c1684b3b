// Package domain contains the subscription model and billing-cycle rules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/tenant"
)

type Status string

const (
	StatusActive Status = "active"
)

// Cycle is the billing cycle length of a subscription.
type Cycle string

const (
	CycleMonthly   Cycle = "monthly"
	CycleSixMonths Cycle = "six_months"
	CycleYearly    Cycle = "yearly"
)

// CycleFromFlags maps the payment flags onto a cycle. Yearly wins over
// six-month; neither means monthly.
func CycleFromFlags(isYearly, isSixMonths bool) Cycle {
	switch {
	case isYearly:
		return CycleYearly
	case isSixMonths:
		return CycleSixMonths
	default:
		return CycleMonthly
	}
}

// Months returns the cycle length configured in months.
func (c Cycle) Months(months config.CycleMonths) int {
	switch c {
	case CycleYearly:
		return months.Yearly
	case CycleSixMonths:
		return months.SixMonths
	default:
		return months.Monthly
	}
}

// LongTerm reports whether the cycle receives monthly active notices.
func (c Cycle) LongTerm() bool {
	return c == CycleYearly || c == CycleSixMonths
}

func (c Cycle) Label() string {
	switch c {
	case CycleYearly:
		return "Yearly"
	case CycleSixMonths:
		return "Six months"
	default:
		return "Monthly"
	}
}

// Period returns the billing window starting at start. The end is start
// plus the cycle length in calendar months.
func Period(start time.Time, cycle Cycle, policy config.Policy) (time.Time, time.Time) {
	return start, start.AddDate(0, cycle.Months(policy.Cycles), 0)
}

// Subscription is the billing state of one user within a tenant app.
type Subscription struct {
	TenantID string `gorm:"primaryKey;type:varchar(64)" json:"-"`
	AppID    string `gorm:"primaryKey;type:varchar(64)" json:"-"`
	UID      string `gorm:"column:uid;primaryKey;type:varchar(128)" json:"uid"`

	Status      Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	PlanName    string          `gorm:"type:text" json:"planName"`
	Cycle       Cycle           `gorm:"type:varchar(16);not null" json:"cycle"`
	IsYearly    bool            `gorm:"not null" json:"isYearly"`
	IsSixMonths bool            `gorm:"not null" json:"isSixMonths"`
	Price       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	StartedAt   time.Time       `gorm:"not null" json:"startedAt"`
	ExpiresAt   time.Time       `gorm:"not null" json:"expiresAt"`

	ReminderSent              bool       `gorm:"not null" json:"reminderSent"`
	Reminder3DaysSentAt       *time.Time `gorm:"column:reminder_3days_sent_at" json:"reminder3DaysSentAt,omitempty"`
	LastMonthlyReminderSentAt string     `gorm:"type:varchar(7);not null" json:"lastMonthlyReminderSentAt,omitempty"`

	CorporateEmail string `gorm:"type:varchar(320)" json:"corporateEmail,omitempty"`
	LastTxnID      string `gorm:"type:varchar(128);not null" json:"lastTxnId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s Subscription) Key() tenant.Key {
	return tenant.Key{TenantID: s.TenantID, AppID: s.AppID}
}

// Path renders {tenantId}/{appId}/subscriptions/{uid}.
func (s Subscription) Path() string {
	return s.Key().Path("subscriptions", s.UID)
}

// ScanCursor is the keyset position of a cross-tenant scan.
type ScanCursor struct {
	TenantID string
	AppID    string
	UID      string
}

// After returns the cursor positioned after s.
func (s Subscription) After() ScanCursor {
	return ScanCursor{TenantID: s.TenantID, AppID: s.AppID, UID: s.UID}
}
