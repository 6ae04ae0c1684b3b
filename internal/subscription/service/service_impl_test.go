package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/dbtest"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	"github.com/smallbiznis/ticketflow/internal/subscription/repository"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testKey = tenant.Key{TenantID: "t1", AppID: "a1"}

func newTestService(t *testing.T) (subscriptiondomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := dbtest.Open(t, &subscriptiondomain.Subscription{})
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clk,
		Policy: config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Repo:   repository.Provide(),
	})
	return svc, db, clk
}

func renew(t *testing.T, svc subscriptiondomain.Service, db *gorm.DB, key tenant.Key, req subscriptiondomain.RenewRequest) subscriptiondomain.Subscription {
	t.Helper()
	sub, err := svc.RenewTx(context.Background(), db, key, req)
	require.NoError(t, err)
	return sub
}

func TestRenewComputesExpiry(t *testing.T) {
	svc, db, clk := newTestService(t)

	renew(t, svc, db, testKey, subscriptiondomain.RenewRequest{
		UID:         "u1",
		TxnID:       "txn-1",
		PlanName:    "Gold",
		IsSixMonths: true,
		Price:       decimal.RequireFromString("2999"),
		Email:       "u1@example.com",
	})

	got, err := svc.Get(context.Background(), testKey, "u1")
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, got.Status)
	assert.Equal(t, subscriptiondomain.CycleSixMonths, got.Cycle)
	assert.True(t, got.StartedAt.Equal(clk.Now()))
	assert.True(t, got.ExpiresAt.Equal(clk.Now().AddDate(0, 6, 0)), got.ExpiresAt.String())
	assert.Equal(t, "u1@example.com", got.CorporateEmail)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("2999")))
}

func TestRenewResetsMarkers(t *testing.T) {
	svc, db, clk := newTestService(t)
	ctx := context.Background()

	first := renew(t, svc, db, testKey, subscriptiondomain.RenewRequest{UID: "u1", TxnID: "txn-1", IsYearly: true, Price: decimal.NewFromInt(100)})

	ok, err := svc.MarkThreeDayReminderTx(ctx, db, first)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.MarkMonthlyNoticeTx(ctx, db, first, "2025-04")
	require.NoError(t, err)
	assert.True(t, ok)

	marked, err := svc.Get(ctx, testKey, "u1")
	require.NoError(t, err)
	assert.True(t, marked.ReminderSent)
	assert.NotNil(t, marked.Reminder3DaysSentAt)
	assert.Equal(t, "2025-04", marked.LastMonthlyReminderSentAt)

	clk.Advance(30 * 24 * time.Hour)
	renew(t, svc, db, testKey, subscriptiondomain.RenewRequest{UID: "u1", TxnID: "txn-2", Price: decimal.NewFromInt(10)})

	renewed, err := svc.Get(ctx, testKey, "u1")
	require.NoError(t, err)
	assert.False(t, renewed.ReminderSent)
	assert.Nil(t, renewed.Reminder3DaysSentAt)
	assert.Empty(t, renewed.LastMonthlyReminderSentAt)
	assert.Equal(t, subscriptiondomain.CycleMonthly, renewed.Cycle)
	assert.Equal(t, "txn-2", renewed.LastTxnID)
	assert.True(t, renewed.ExpiresAt.Equal(clk.Now().AddDate(0, 1, 0)))
}

func TestMarkersAreConditional(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	sub := renew(t, svc, db, testKey, subscriptiondomain.RenewRequest{UID: "u1", TxnID: "txn-1", IsYearly: true, Price: decimal.NewFromInt(100)})

	ok, err := svc.MarkThreeDayReminderTx(ctx, db, sub)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.MarkThreeDayReminderTx(ctx, db, sub)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.MarkMonthlyNoticeTx(ctx, db, sub, "2025-04")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.MarkMonthlyNoticeTx(ctx, db, sub, "2025-04")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.MarkMonthlyNoticeTx(ctx, db, sub, "2025-05")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMarkIgnoresSupersededRenewal(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	stale := renew(t, svc, db, testKey, subscriptiondomain.RenewRequest{UID: "u1", TxnID: "txn-1", Price: decimal.NewFromInt(10)})
	renew(t, svc, db, testKey, subscriptiondomain.RenewRequest{UID: "u1", TxnID: "txn-2", Price: decimal.NewFromInt(10)})

	ok, err := svc.MarkThreeDayReminderTx(ctx, db, stale)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListActiveAcrossTenants(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	keys := []tenant.Key{
		{TenantID: "t2", AppID: "a1"},
		{TenantID: "t1", AppID: "a2"},
		{TenantID: "t1", AppID: "a1"},
	}
	for _, key := range keys {
		for _, uid := range []string{"b", "a"} {
			renew(t, svc, db, key, subscriptiondomain.RenewRequest{UID: uid, TxnID: "txn-" + uid, Price: decimal.NewFromInt(1)})
		}
	}

	var seen []string
	var cursor *subscriptiondomain.ScanCursor
	for {
		page, err := svc.ListActive(ctx, cursor, 4)
		require.NoError(t, err)
		for _, sub := range page {
			seen = append(seen, sub.Path())
		}
		if len(page) < 4 {
			break
		}
		next := page[len(page)-1].After()
		cursor = &next
	}

	assert.Equal(t, []string{
		"t1/a1/subscriptions/a",
		"t1/a1/subscriptions/b",
		"t1/a2/subscriptions/a",
		"t1/a2/subscriptions/b",
		"t2/a1/subscriptions/a",
		"t2/a1/subscriptions/b",
	}, seen)
}

func TestGetValidates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, testKey, " ")
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidUID)
	_, err = svc.Get(ctx, testKey, "missing")
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}
