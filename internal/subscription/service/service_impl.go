package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	policy *config.PolicyHolder
	repo   subscriptiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Policy *config.PolicyHolder
	Repo   subscriptiondomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("subscription.service"),
		clock:  p.Clock,
		policy: p.Policy,
		repo:   p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, key tenant.Key, uid string) (subscriptiondomain.Subscription, error) {
	if err := key.Validate(); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidUID
	}

	sub, err := s.repo.FindByID(ctx, s.db, key, uid)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *sub, nil
}

// RenewTx merges the renewal into the subscription. The expiry is always
// recomputed from the new start and every reminder marker is cleared.
func (s *Service) RenewTx(ctx context.Context, tx *gorm.DB, key tenant.Key, req subscriptiondomain.RenewRequest) (subscriptiondomain.Subscription, error) {
	if err := key.Validate(); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidUID
	}
	if strings.TrimSpace(req.TxnID) == "" || req.Price.IsNegative() {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidRenewalPayment
	}

	now := s.clock.Now()
	startedAt := req.StartedAt
	if startedAt.IsZero() {
		startedAt = now
	}
	cycle := subscriptiondomain.CycleFromFlags(req.IsYearly, req.IsSixMonths)
	start, end := subscriptiondomain.Period(startedAt, cycle, s.policy.Get())

	sub := subscriptiondomain.Subscription{
		TenantID:       key.TenantID,
		AppID:          key.AppID,
		UID:            uid,
		Status:         subscriptiondomain.StatusActive,
		PlanName:       strings.TrimSpace(req.PlanName),
		Cycle:          cycle,
		IsYearly:       req.IsYearly,
		IsSixMonths:    req.IsSixMonths,
		Price:          req.Price.Round(2),
		StartedAt:      start,
		ExpiresAt:      end,
		CorporateEmail: strings.TrimSpace(req.Email),
		LastTxnID:      strings.TrimSpace(req.TxnID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.UpsertRenewal(ctx, tx, &sub); err != nil {
		return subscriptiondomain.Subscription{}, fmt.Errorf("renew subscription: %w", err)
	}

	ctxlogger.WithContext(ctx, s.log).Info("subscription.renewed",
		zap.String("path", sub.Path()),
		zap.String("cycle", string(cycle)),
		zap.Time("expires_at", end),
		zap.String("txn_id", sub.LastTxnID),
	)
	return sub, nil
}

func (s *Service) ListActive(ctx context.Context, after *subscriptiondomain.ScanCursor, limit int) ([]subscriptiondomain.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListActive(ctx, s.db, after, limit)
}

func (s *Service) MarkThreeDayReminderTx(ctx context.Context, tx *gorm.DB, sub subscriptiondomain.Subscription) (bool, error) {
	return s.repo.MarkThreeDayReminder(ctx, tx, sub.Key(), sub.UID, sub.LastTxnID, s.clock.Now())
}

func (s *Service) MarkMonthlyNoticeTx(ctx context.Context, tx *gorm.DB, sub subscriptiondomain.Subscription, month string) (bool, error) {
	return s.repo.MarkMonthlyNotice(ctx, tx, sub.Key(), sub.UID, sub.LastTxnID, month)
}
