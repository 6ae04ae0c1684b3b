// Package reminder runs the daily sweep that warns subscribers before
// expiry and confirms long-cycle subscriptions once a month.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	invoicedomain "github.com/smallbiznis/ticketflow/internal/invoice/domain"
	"github.com/smallbiznis/ticketflow/internal/invoice/render"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	"github.com/smallbiznis/ticketflow/internal/observability/metrics"
	"github.com/smallbiznis/ticketflow/internal/observability/tracing"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	tracerName = "reminder"

	KindExpiryWarning = "expiry_warning"
	KindMonthlyNotice = "monthly_notice"

	TypeSubscriptionExpiry = "subscription_expiry"
	TypeSubscriptionActive = "subscription_active"

	defaultConcurrency = 8
	defaultBatchSize   = 200
)

// Summary counts what one sweep did.
type Summary struct {
	Scanned        int `json:"scanned"`
	ExpiryWarnings int `json:"expiryWarnings"`
	MonthlyNotices int `json:"monthlyNotices"`
	Failed         int `json:"failed"`
}

type taskResult struct {
	expiry  bool
	monthly bool
	err     error
}

type Scanner struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	policy        *config.PolicyHolder
	subscriptions subscriptiondomain.Service
	profiles      profiledomain.Service
	mail          maildomain.Service
	renderer      render.Renderer
	notifications notificationdomain.Service
	metrics       *metrics.Metrics

	concurrency int
	batchSize   int
}

type ScannerParam struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Config        config.Config
	Policy        *config.PolicyHolder
	Subscriptions subscriptiondomain.Service
	Profiles      profiledomain.Service
	Mail          maildomain.Service
	Renderer      render.Renderer
	Notifications notificationdomain.Service
	Metrics       *metrics.Metrics `optional:"true"`
}

func NewScanner(p ScannerParam) *Scanner {
	concurrency := p.Config.Scheduler.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	batchSize := p.Config.Scheduler.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Scanner{
		db:            p.DB,
		log:           p.Log.Named("reminder.scanner"),
		clock:         p.Clock,
		policy:        p.Policy,
		subscriptions: p.Subscriptions,
		profiles:      p.Profiles,
		mail:          p.Mail,
		renderer:      p.Renderer,
		notifications: p.Notifications,
		metrics:       p.Metrics,
		concurrency:   concurrency,
		batchSize:     batchSize,
	}
}

// Sweep scans every active subscription across tenants once. A failing
// subscription is counted and logged; it never stops the sweep. The
// returned error reports only scan failures.
func (s *Scanner) Sweep(ctx context.Context) (summary Summary, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "reminder.sweep")
	defer func() { tracing.EndSpan(span, err) }()

	log := ctxlogger.WithContext(ctx, s.log)
	policy := s.policy.Get()
	now := s.clock.Now()

	var cursor *subscriptiondomain.ScanCursor
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		page, err := s.subscriptions.ListActive(ctx, cursor, s.batchSize)
		if err != nil {
			return summary, fmt.Errorf("list active subscriptions: %w", err)
		}
		if len(page) == 0 {
			break
		}

		p := pool.NewWithResults[taskResult]().WithMaxGoroutines(s.concurrency)
		for _, sub := range page {
			p.Go(func() taskResult {
				return s.process(ctx, policy, now, sub)
			})
		}
		for _, res := range p.Wait() {
			summary.Scanned++
			if res.err != nil {
				summary.Failed++
				metrics.Scheduler().IncItemFailure(jobName, res.err)
				continue
			}
			if res.expiry {
				summary.ExpiryWarnings++
			}
			if res.monthly {
				summary.MonthlyNotices++
			}
		}

		next := page[len(page)-1].After()
		cursor = &next
		if len(page) < s.batchSize {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("reminder.scanned", summary.Scanned),
		attribute.Int("reminder.failed", summary.Failed),
	)
	log.Info("reminder.sweep.finish",
		zap.Int("scanned", summary.Scanned),
		zap.Int("expiry_warnings", summary.ExpiryWarnings),
		zap.Int("monthly_notices", summary.MonthlyNotices),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Scanner) process(ctx context.Context, policy config.Policy, now time.Time, sub subscriptiondomain.Subscription) (res taskResult) {
	log := ctxlogger.WithContext(ctx, s.log).With(
		zap.String("path", sub.Path()),
		zap.String("cycle", string(sub.Cycle)),
	)
	defer func() {
		if r := recover(); r != nil {
			res = taskResult{err: fmt.Errorf("reminder task panic: %v", r)}
			log.Error("reminder.task.panic", zap.Any("panic", r))
		}
	}()

	var errs []error
	if ExpiryWarningDue(sub, now, policy) {
		sent, err := s.sendExpiryWarning(ctx, log, policy, now, sub)
		if err != nil {
			log.Error("reminder.expiry.failed", zap.Error(err))
			errs = append(errs, err)
		}
		res.expiry = sent
	}
	if month, due := MonthlyNoticeDue(sub, now, policy); due {
		sent, err := s.sendMonthlyNotice(ctx, log, policy, month, sub)
		if err != nil {
			log.Error("reminder.monthly.failed", zap.Error(err))
			errs = append(errs, err)
		}
		res.monthly = sent
	}
	res.err = errors.Join(errs...)
	return res
}

func (s *Scanner) sendExpiryWarning(ctx context.Context, log *zap.Logger, policy config.Policy, now time.Time, sub subscriptiondomain.Subscription) (bool, error) {
	daysLeft := DaysUntil(now, sub.ExpiresAt, policy.Location())
	reminder := invoicedomain.ExpiryReminder{
		PlanName:  sub.PlanName,
		ExpiresAt: sub.ExpiresAt,
		DaysLeft:  daysLeft,
	}
	body, err := s.renderer.ExpiryReminderEmail(policy, reminder)
	if err != nil {
		return false, fmt.Errorf("render expiry reminder: %w", err)
	}

	claimed, err := s.commit(ctx, log, sub, body, func(tx *gorm.DB) (bool, error) {
		return s.subscriptions.MarkThreeDayReminderTx(ctx, tx, sub)
	})
	if err != nil || !claimed {
		return false, err
	}

	title := "Subscription expiring soon"
	text := fmt.Sprintf("Your %s subscription expires in %d days.", planName(sub), daysLeft)
	s.notify(ctx, log, sub, TypeSubscriptionExpiry, title, text)
	s.metrics.RecordReminder(KindExpiryWarning)
	log.Info("reminder.expiry.sent", zap.Int("days_left", daysLeft))
	return true, nil
}

func (s *Scanner) sendMonthlyNotice(ctx context.Context, log *zap.Logger, policy config.Policy, month string, sub subscriptiondomain.Subscription) (bool, error) {
	notice := invoicedomain.ActiveNotice{
		PlanName:   sub.PlanName,
		CycleLabel: sub.Cycle.Label(),
		StartedAt:  sub.StartedAt,
		ExpiresAt:  sub.ExpiresAt,
		Month:      month,
	}
	body, err := s.renderer.ActiveNoticeEmail(policy, notice)
	if err != nil {
		return false, fmt.Errorf("render active notice: %w", err)
	}

	claimed, err := s.commit(ctx, log, sub, body, func(tx *gorm.DB) (bool, error) {
		return s.subscriptions.MarkMonthlyNoticeTx(ctx, tx, sub, month)
	})
	if err != nil || !claimed {
		return false, err
	}

	title := "Subscription active"
	text := fmt.Sprintf("Your %s subscription is active until %s.", planName(sub), sub.ExpiresAt.In(policy.Location()).Format("02 Jan 2006"))
	s.notify(ctx, log, sub, TypeSubscriptionActive, title, text)
	s.metrics.RecordReminder(KindMonthlyNotice)
	log.Info("reminder.monthly.sent", zap.String("month", month))
	return true, nil
}

// commit sets the marker and enqueues the email in one transaction. It
// reports false when the marker was already taken, in which case nothing is
// enqueued.
func (s *Scanner) commit(ctx context.Context, log *zap.Logger, sub subscriptiondomain.Subscription, body render.Email, mark func(tx *gorm.DB) (bool, error)) (bool, error) {
	to, err := s.recipient(ctx, log, sub)
	if err != nil {
		return false, err
	}

	claimed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := mark(tx)
		if err != nil {
			return fmt.Errorf("set reminder marker: %w", err)
		}
		if !ok {
			return nil
		}
		claimed = true
		if to == "" {
			return nil
		}
		_, err = s.mail.EnqueueTx(ctx, tx, sub.Key(), maildomain.Message{
			To:      to,
			Subject: body.Subject,
			HTML:    body.HTML,
		})
		return err
	})
	if err != nil {
		return false, err
	}
	if !claimed {
		log.Debug("reminder.marker.taken")
	}
	return claimed, nil
}

// recipient returns the address for sub, or "" when none can be found.
func (s *Scanner) recipient(ctx context.Context, log *zap.Logger, sub subscriptiondomain.Subscription) (string, error) {
	to, err := s.profiles.ResolveEmail(ctx, sub.Key(), sub.UID)
	if err == nil {
		return to, nil
	}
	if !errors.Is(err, profiledomain.ErrEmailUnresolvable) {
		return "", fmt.Errorf("resolve recipient: %w", err)
	}
	if corporate := strings.TrimSpace(sub.CorporateEmail); corporate != "" {
		return corporate, nil
	}
	log.Warn("reminder.email.skipped", zap.String("reason", "email_unresolvable"))
	return "", nil
}

// notify pushes to the subscriber and appends the in-app banner. Both are
// best effort.
func (s *Scanner) notify(ctx context.Context, log *zap.Logger, sub subscriptiondomain.Subscription, kind, title, body string) {
	s.notifications.Dispatch(ctx, sub.Key(), tokendomain.RoleCustomer, sub.UID, notificationdomain.Payload{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":      kind,
			"uid":       sub.UID,
			"expiresAt": sub.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
	if _, err := s.notifications.AppendBanner(ctx, sub.Key(), notificationdomain.BannerRequest{
		CustomerID: sub.UID,
		Title:      title,
		Body:       body,
		Type:       kind,
	}); err != nil {
		log.Warn("reminder.banner_failed", zap.String("type", kind), zap.Error(err))
	}
}

func planName(sub subscriptiondomain.Subscription) string {
	if name := strings.TrimSpace(sub.PlanName); name != "" {
		return name
	}
	return "current"
}
