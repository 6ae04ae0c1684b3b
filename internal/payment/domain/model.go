package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Step is the last lifecycle step committed for a transaction.
type Step string

const (
	StepNone            Step = ""
	StepInvoiceNumbered Step = "invoice_numbered"
	StepReceiptEnqueued Step = "receipt_enqueued"
	StepStamped         Step = "stamped"
	StepCompleted       Step = "completed"
)

var stepOrder = map[Step]int{
	StepNone:            0,
	StepInvoiceNumbered: 1,
	StepReceiptEnqueued: 2,
	StepStamped:         3,
	StepCompleted:       4,
}

// Reached reports whether s is at or past target.
func (s Step) Reached(target Step) bool {
	return stepOrder[s] >= stepOrder[target]
}

type Transaction struct {
	TenantID      string          `gorm:"primaryKey;type:varchar(64)" json:"-"`
	AppID         string          `gorm:"primaryKey;type:varchar(64)" json:"-"`
	TxnID         string          `gorm:"primaryKey;type:varchar(128)" json:"txnId"`
	Status        Status          `gorm:"type:varchar(16);not null" json:"status"`
	UID           string          `gorm:"column:uid;type:varchar(128)" json:"uid,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	PlanName      string          `gorm:"type:text" json:"planName,omitempty"`
	IsYearly      bool            `gorm:"not null;default:false" json:"isYearly"`
	IsSixMonths   bool            `gorm:"not null;default:false" json:"isSixMonths"`
	PaymentMethod string          `gorm:"type:varchar(64)" json:"paymentMethod,omitempty"`
	MerchantTxnNo string          `gorm:"type:varchar(128)" json:"merchantTxnNo,omitempty"`

	InvoiceNo       string     `gorm:"type:varchar(64)" json:"invoiceNo,omitempty"`
	InvoiceIssuedAt *time.Time `json:"invoiceIssuedAt,omitempty"`
	ReceiptSentAt   *time.Time `json:"receiptSentAt,omitempty"`

	LifecycleStep       Step       `gorm:"type:varchar(32);not null;default:''" json:"lifecycleStep,omitempty"`
	LifecycleClaimToken string     `gorm:"type:varchar(64);not null;default:''" json:"-"`
	LifecycleClaimedAt  *time.Time `json:"-"`
	LifecycleError      string     `gorm:"type:text;not null;default:''" json:"lifecycleError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Transaction) TableName() string { return "payment_transactions" }

// Stuck reports a successful payment whose lifecycle has not completed.
func (t Transaction) Stuck() bool {
	return t.Status == StatusSuccess && t.LifecycleStep != StepCompleted
}
