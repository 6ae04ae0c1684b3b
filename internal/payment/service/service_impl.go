package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     paymentdomain.Repository
	recorder *changefeed.Recorder
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     paymentdomain.Repository
	Recorder *changefeed.Recorder
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		recorder: p.Recorder,
	}
}

// Save writes the transaction and records the change. A SUCCESS status is
// terminal: later writes may edit other fields but never downgrade it.
func (s *Service) Save(ctx context.Context, key tenant.Key, req paymentdomain.SaveRequest) (paymentdomain.Transaction, error) {
	if err := key.Validate(); err != nil {
		return paymentdomain.Transaction{}, err
	}
	txnID := strings.TrimSpace(req.TxnID)
	if txnID == "" {
		return paymentdomain.Transaction{}, paymentdomain.ErrInvalidTxnID
	}
	status, err := paymentdomain.ParseStatus(paymentdomain.Status(strings.ToUpper(strings.TrimSpace(string(req.Status)))))
	if err != nil {
		return paymentdomain.Transaction{}, err
	}
	if req.Amount.IsNegative() {
		return paymentdomain.Transaction{}, paymentdomain.ErrInvalidAmount
	}

	var saved paymentdomain.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.repo.FindByID(ctx, tx, key, txnID)
		if err != nil {
			return err
		}
		if before != nil && before.Status == paymentdomain.StatusSuccess && status != paymentdomain.StatusSuccess {
			return paymentdomain.ErrStatusRegression
		}

		now := s.clock.Now()
		after := paymentdomain.Transaction{
			TenantID:      key.TenantID,
			AppID:         key.AppID,
			TxnID:         txnID,
			Status:        status,
			UID:           strings.TrimSpace(req.UID),
			Amount:        req.Amount.Round(2),
			PlanName:      strings.TrimSpace(req.PlanName),
			IsYearly:      req.IsYearly,
			IsSixMonths:   req.IsSixMonths,
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
			MerchantTxnNo: strings.TrimSpace(req.MerchantTxnNo),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if before != nil {
			after.CreatedAt = before.CreatedAt
			after.InvoiceNo = before.InvoiceNo
			after.InvoiceIssuedAt = before.InvoiceIssuedAt
			after.ReceiptSentAt = before.ReceiptSentAt
			after.LifecycleStep = before.LifecycleStep
			after.LifecycleError = before.LifecycleError
		}
		if err := s.repo.Upsert(ctx, tx, &after); err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		if _, err := s.recorder.Record(ctx, tx, key, changefeed.CollectionPaymentTransactions, txnID, before, after); err != nil {
			return err
		}
		saved = after
		return nil
	})
	return saved, err
}

func (s *Service) Get(ctx context.Context, key tenant.Key, txnID string) (paymentdomain.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, s.db, key, strings.TrimSpace(txnID))
	if err != nil {
		return paymentdomain.Transaction{}, err
	}
	if txn == nil {
		return paymentdomain.Transaction{}, paymentdomain.ErrTransactionNotFound
	}
	return *txn, nil
}

func (s *Service) ListStuck(ctx context.Context, key tenant.Key, page pagination.Pagination) (paymentdomain.ListResponse, error) {
	if err := key.Validate(); err != nil {
		return paymentdomain.ListResponse{}, err
	}
	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return paymentdomain.ListResponse{}, paymentdomain.ErrInvalidPageToken
	}

	limit := page.Limit()
	txns, err := s.repo.ListStuck(ctx, s.db, key, cursor, limit+1)
	if err != nil {
		return paymentdomain.ListResponse{}, err
	}
	txns, info, err := pagination.Page(txns, limit, func(t paymentdomain.Transaction) pagination.Cursor {
		return pagination.Cursor{ID: t.TxnID, CreatedAt: t.CreatedAt}
	})
	if err != nil {
		return paymentdomain.ListResponse{}, err
	}
	return paymentdomain.ListResponse{PageInfo: info, Transactions: txns}, nil
}
