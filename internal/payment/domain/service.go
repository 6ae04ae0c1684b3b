package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
)

type SaveRequest struct {
	TxnID         string          `json:"-"`
	Status        Status          `json:"status"`
	UID           string          `json:"uid"`
	Amount        decimal.Decimal `json:"amount"`
	PlanName      string          `json:"planName"`
	IsYearly      bool            `json:"isYearly"`
	IsSixMonths   bool            `json:"isSixMonths"`
	PaymentMethod string          `json:"paymentMethod"`
	MerchantTxnNo string          `json:"merchantTxnNo"`
}

type ListResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	Save(ctx context.Context, key tenant.Key, req SaveRequest) (Transaction, error)
	Get(ctx context.Context, key tenant.Key, txnID string) (Transaction, error)
	ListStuck(ctx context.Context, key tenant.Key, page pagination.Pagination) (ListResponse, error)
}

var (
	ErrInvalidTxnID        = errors.New("invalid_txn_id")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrStatusRegression    = errors.New("status_regression")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrClaimLost           = errors.New("lifecycle_claim_lost")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)

func ParseStatus(raw Status) (Status, error) {
	switch raw {
	case StatusPending, StatusSuccess, StatusFailed:
		return raw, nil
	case "":
		return StatusPending, nil
	default:
		return "", ErrInvalidStatus
	}
}
