package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/dbtest"
	"github.com/smallbiznis/ticketflow/internal/invoice/render"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	mailrepository "github.com/smallbiznis/ticketflow/internal/mailqueue/repository"
	mailservice "github.com/smallbiznis/ticketflow/internal/mailqueue/service"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/ticketflow/internal/notification/repository"
	notificationservice "github.com/smallbiznis/ticketflow/internal/notification/service"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	profilerepository "github.com/smallbiznis/ticketflow/internal/profile/repository"
	profileservice "github.com/smallbiznis/ticketflow/internal/profile/service"
	"github.com/smallbiznis/ticketflow/internal/providers/email/emailtest"
	"github.com/smallbiznis/ticketflow/internal/push/pushtest"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/ticketflow/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/ticketflow/internal/subscription/service"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	tokenrepo "github.com/smallbiznis/ticketflow/internal/token/repository"
	tokenservice "github.com/smallbiznis/ticketflow/internal/token/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testKey = tenant.Key{TenantID: "t1", AppID: "a1"}

// identities knows nobody, and fails outright for uids listed in down.
type identities struct {
	down map[string]bool
}

func (i identities) LookupUser(_ context.Context, uid string) (profiledomain.Identity, error) {
	if i.down[uid] {
		return profiledomain.Identity{}, errors.New("identity provider unavailable")
	}
	return profiledomain.Identity{}, profiledomain.ErrIdentityNotFound
}

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	subs    subscriptiondomain.Service
	sender  *pushtest.Sender
	scanner *Scanner
}

func newFixture(t *testing.T, batchSize int, down ...string) *fixture {
	t.Helper()
	db := dbtest.Open(t,
		&subscriptiondomain.Subscription{},
		&profiledomain.UserProfile{},
		&maildomain.Item{},
		&changefeed.Change{},
		&tokendomain.NotificationToken{},
		&notificationdomain.Banner{},
	)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	node := dbtest.Node(t)
	log := zap.NewNop()
	policy := config.NewStaticPolicyHolder(config.DefaultPolicy())

	unavailable := map[string]bool{}
	for _, uid := range down {
		unavailable[uid] = true
	}

	subs := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB: db, Log: log, Clock: clk, Policy: policy, Repo: subscriptionrepository.Provide(),
	})
	profiles := profileservice.NewService(profileservice.ServiceParam{
		DB: db, Log: log, Clock: clk, Repo: profilerepository.Provide(), Identities: identities{down: unavailable},
	})
	mail := mailservice.NewService(mailservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: mailrepository.Provide(),
		Recorder: changefeed.NewRecorder(node, clk), Transport: &emailtest.Transport{},
	})
	tokens := tokenservice.NewService(tokenservice.ServiceParam{DB: db, Log: log, Clock: clk, Repo: tokenrepo.Provide()})
	sender := pushtest.NewSender()
	notify := notificationservice.NewService(notificationservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Tokens: tokens, Sender: sender, Banners: notificationrepo.Provide(),
	})

	cfg := config.Config{}
	cfg.Scheduler.Concurrency = 4
	cfg.Scheduler.BatchSize = batchSize

	scanner := NewScanner(ScannerParam{
		DB:            db,
		Log:           log,
		Clock:         clk,
		Config:        cfg,
		Policy:        policy,
		Subscriptions: subs,
		Profiles:      profiles,
		Mail:          mail,
		Renderer:      render.NewRenderer(),
		Notifications: notify,
	})

	ctx := context.Background()
	for _, uid := range []string{"u1", "u2", "u3"} {
		_, err := profiles.Save(ctx, testKey, profiledomain.SaveRequest{UID: uid, Email: uid + "@example.com"})
		require.NoError(t, err)
		_, err = tokens.Register(ctx, testKey, tokendomain.RegisterRequest{Role: "customer", UserID: uid, Token: "tok-" + uid})
		require.NoError(t, err)
	}

	return &fixture{db: db, clock: clk, subs: subs, sender: sender, scanner: scanner}
}

func (f *fixture) renew(t *testing.T, key tenant.Key, req subscriptiondomain.RenewRequest) {
	t.Helper()
	if req.TxnID == "" {
		req.TxnID = "txn-" + req.UID
	}
	req.Price = decimal.NewFromInt(499)
	_, err := f.subs.RenewTx(context.Background(), f.db, key, req)
	require.NoError(t, err)
}

func (f *fixture) mailTo(t *testing.T, to string) []maildomain.Item {
	t.Helper()
	var items []maildomain.Item
	require.NoError(t, f.db.Where("recipient = ?", to).Order("id").Find(&items).Error)
	return items
}

func (f *fixture) banners(t *testing.T, customerID, kind string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&notificationdomain.Banner{}).
		Where("customer_id = ? AND type = ?", customerID, kind).
		Count(&n).Error)
	return n
}

func TestExpiryWarningFiresOncePerPeriod(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()
	// Monthly from 13 Feb expires 13 Mar, three days after the clock.
	f.renew(t, testKey, subscriptiondomain.RenewRequest{
		UID: "u1", PlanName: "Pro", StartedAt: time.Date(2025, 2, 13, 10, 0, 0, 0, time.UTC),
	})

	summary, err := f.scanner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, ExpiryWarnings: 1}, summary)

	mails := f.mailTo(t, "u1@example.com")
	require.Len(t, mails, 1)
	assert.Equal(t, "Your Pro subscription expires in 3 days", mails[0].Subject)

	pushes := f.sender.SentTo("tok-u1")
	require.Len(t, pushes, 1)
	assert.Equal(t, TypeSubscriptionExpiry, pushes[0].Data["type"])
	assert.Equal(t, int64(1), f.banners(t, "u1", TypeSubscriptionExpiry))

	sub, err := f.subs.Get(ctx, testKey, "u1")
	require.NoError(t, err)
	assert.True(t, sub.ReminderSent)
	require.NotNil(t, sub.Reminder3DaysSentAt)

	// Same-day re-run is a no-op.
	summary, err = f.scanner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1}, summary)
	assert.Len(t, f.mailTo(t, "u1@example.com"), 1)
	assert.Len(t, f.sender.SentTo("tok-u1"), 1)
	assert.Equal(t, int64(1), f.banners(t, "u1", TypeSubscriptionExpiry))
}

func TestRenewalRearmsExpiryWarning(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()
	f.renew(t, testKey, subscriptiondomain.RenewRequest{
		UID: "u1", TxnID: "txn-1", StartedAt: time.Date(2025, 2, 13, 10, 0, 0, 0, time.UTC),
	})
	_, err := f.scanner.Sweep(ctx)
	require.NoError(t, err)

	f.renew(t, testKey, subscriptiondomain.RenewRequest{
		UID: "u1", TxnID: "txn-2", StartedAt: time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC),
	})
	f.clock.Set(time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC))

	summary, err := f.scanner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExpiryWarnings)
	assert.Len(t, f.mailTo(t, "u1@example.com"), 2)
}

func TestMissedDayIsNotRetried(t *testing.T) {
	f := newFixture(t, 50)
	f.renew(t, testKey, subscriptiondomain.RenewRequest{
		UID: "u1", StartedAt: time.Date(2025, 2, 12, 10, 0, 0, 0, time.UTC),
	})

	summary, err := f.scanner.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ExpiryWarnings)
	assert.Empty(t, f.mailTo(t, "u1@example.com"))
}

func TestMonthlyNoticeOncePerMonth(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()
	f.renew(t, testKey, subscriptiondomain.RenewRequest{
		UID: "u2", PlanName: "Team", IsYearly: true, StartedAt: time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
	})

	summary, err := f.scanner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, MonthlyNotices: 1}, summary)
	mails := f.mailTo(t, "u2@example.com")
	require.Len(t, mails, 1)
	assert.Equal(t, "Your Team subscription is active", mails[0].Subject)
	assert.Equal(t, int64(1), f.banners(t, "u2", TypeSubscriptionActive))

	sub, err := f.subs.Get(ctx, testKey, "u2")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", sub.LastMonthlyReminderSentAt)

	f.clock.Advance(24 * time.Hour)
	summary, err = f.scanner.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.MonthlyNotices)

	f.clock.Set(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	summary, err = f.scanner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MonthlyNotices)
	assert.Len(t, f.mailTo(t, "u2@example.com"), 2)
}

func TestMonthlyNoticeSkipsMonthlyCycle(t *testing.T) {
	f := newFixture(t, 50)
	f.renew(t, testKey, subscriptiondomain.RenewRequest{
		UID: "u2", StartedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	summary, err := f.scanner.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.MonthlyNotices)
}

func TestCorporateEmailIsFallbackRecipient(t *testing.T) {
	f := newFixture(t, 50)
	f.renew(t, testKey, subscriptiondomain.RenewRequest{
		UID: "no-profile", Email: "billing@corp.example", StartedAt: time.Date(2025, 2, 13, 10, 0, 0, 0, time.UTC),
	})

	summary, err := f.scanner.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExpiryWarnings)
	assert.Len(t, f.mailTo(t, "billing@corp.example"), 1)
}

func TestFailingSubscriptionIsIsolated(t *testing.T) {
	f := newFixture(t, 2, "broken")
	ctx := context.Background()
	other := tenant.Key{TenantID: "t2", AppID: "a1"}
	start := time.Date(2025, 2, 13, 10, 0, 0, 0, time.UTC)

	f.renew(t, testKey, subscriptiondomain.RenewRequest{UID: "broken", StartedAt: start})
	f.renew(t, testKey, subscriptiondomain.RenewRequest{UID: "u1", StartedAt: start})
	f.renew(t, testKey, subscriptiondomain.RenewRequest{UID: "u3", StartedAt: start})
	f.renew(t, other, subscriptiondomain.RenewRequest{UID: "u9", Email: "u9@t2.example", StartedAt: start})

	summary, err := f.scanner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 4, ExpiryWarnings: 3, Failed: 1}, summary)
	assert.Len(t, f.mailTo(t, "u1@example.com"), 1)
	assert.Len(t, f.mailTo(t, "u3@example.com"), 1)
	assert.Len(t, f.mailTo(t, "u9@t2.example"), 1)

	broken, err := f.subs.Get(ctx, testKey, "broken")
	require.NoError(t, err)
	assert.False(t, broken.ReminderSent)
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.scanner.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
