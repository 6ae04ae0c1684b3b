package domain

import "time"

// Receipt is the rendered view of one paid transaction.
type Receipt struct {
	Number   string
	IssuedAt time.Time

	TxnID         string
	MerchantTxnNo string
	PaymentMethod string

	PlanName    string
	CycleLabel  string
	PeriodStart time.Time
	PeriodEnd   time.Time

	PayerName  string
	PayerEmail string

	Currency string
	Amounts  Breakdown
}

// Reference is the payer-facing payment reference: the merchant number
// when present, otherwise the transaction id.
func (r Receipt) Reference() string {
	if r.MerchantTxnNo != "" {
		return r.MerchantTxnNo
	}
	return r.TxnID
}

// ExpiryReminder announces that a subscription ends in DaysLeft days.
type ExpiryReminder struct {
	PlanName  string
	ExpiresAt time.Time
	DaysLeft  int
}

// ActiveNotice confirms a long-cycle subscription is still active.
type ActiveNotice struct {
	PlanName   string
	CycleLabel string
	StartedAt  time.Time
	ExpiresAt  time.Time
	Month      string
}

// OneTimeCode is the body of a login code email.
type OneTimeCode struct {
	Code      string
	ExpiresAt time.Time
}
