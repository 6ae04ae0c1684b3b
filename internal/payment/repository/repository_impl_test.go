package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ticketflow/internal/dbtest"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testKey = tenant.Key{TenantID: "t1", AppID: "a1"}

func seed(t *testing.T, db *gorm.DB, status paymentdomain.Status) {
	t.Helper()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, Provide().Upsert(context.Background(), db, &paymentdomain.Transaction{
		TenantID:  testKey.TenantID,
		AppID:     testKey.AppID,
		TxnID:     "txn-1",
		Status:    status,
		UID:       "u1",
		Amount:    decimal.RequireFromString("1180.00"),
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func claimAt(token string, at time.Time) paymentdomain.Claim {
	return paymentdomain.Claim{Key: testKey, TxnID: "txn-1", Token: token, ClaimedAt: at}
}

func TestClaimIsExclusiveUntilStale(t *testing.T) {
	db := dbtest.Open(t, &paymentdomain.Transaction{})
	seed(t, db, paymentdomain.StatusSuccess)
	r := Provide()
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	ok, err := r.Claim(ctx, db, claimAt("a", now), now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Claim(ctx, db, claimAt("b", now.Add(time.Minute)), now.Add(-9*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "fresh claim must not be taken over")

	later := now.Add(11 * time.Minute)
	ok, err = r.Claim(ctx, db, claimAt("c", later), later.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok, "stale claim may be taken over")

	err = r.AdvanceStep(ctx, db, claimAt("a", now), paymentdomain.StepInvoiceNumbered, nil)
	assert.ErrorIs(t, err, paymentdomain.ErrClaimLost)
}

func TestClaimRequiresSuccessAndNoFailure(t *testing.T) {
	db := dbtest.Open(t, &paymentdomain.Transaction{})
	seed(t, db, paymentdomain.StatusPending)
	r := Provide()
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	ok, err := r.Claim(ctx, db, claimAt("a", now), now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	seed(t, db, paymentdomain.StatusSuccess)
	ok, err = r.Claim(ctx, db, claimAt("a", now), now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, r.RecordFailure(ctx, db, claimAt("a", now), "smtp down"))

	ok, err = r.Claim(ctx, db, claimAt("b", now), now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "failed lifecycle waits for redrive")

	cleared, err := r.ClearFailure(ctx, db, testKey, "txn-1")
	require.NoError(t, err)
	assert.True(t, cleared)

	ok, err = r.Claim(ctx, db, claimAt("b", now), now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompletedLifecycleCannotBeClaimed(t *testing.T) {
	db := dbtest.Open(t, &paymentdomain.Transaction{})
	seed(t, db, paymentdomain.StatusSuccess)
	r := Provide()
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	require.True(t, mustClaim(t, r, db, claimAt("a", now)))
	require.NoError(t, r.AdvanceStep(ctx, db, claimAt("a", now), paymentdomain.StepCompleted, map[string]any{"invoice_no": "INV-1"}))
	require.NoError(t, r.Release(ctx, db, claimAt("a", now)))

	assert.False(t, mustClaim(t, r, db, claimAt("b", now)))

	txn, err := r.FindByID(ctx, db, testKey, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", txn.InvoiceNo)
	assert.Nil(t, txn.LifecycleClaimedAt)

	stuck, err := r.ListStuck(ctx, db, testKey, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}

func TestUpsertPreservesLifecycleColumns(t *testing.T) {
	db := dbtest.Open(t, &paymentdomain.Transaction{})
	seed(t, db, paymentdomain.StatusSuccess)
	r := Provide()
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	require.True(t, mustClaim(t, r, db, claimAt("a", now)))
	require.NoError(t, r.AdvanceStep(ctx, db, claimAt("a", now), paymentdomain.StepStamped, map[string]any{"invoice_no": "INV-1"}))

	seed(t, db, paymentdomain.StatusSuccess)

	txn, err := r.FindByID(ctx, db, testKey, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StepStamped, txn.LifecycleStep)
	assert.Equal(t, "INV-1", txn.InvoiceNo)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("1180")))
}

func mustClaim(t *testing.T, r paymentdomain.Repository, db *gorm.DB, claim paymentdomain.Claim) bool {
	t.Helper()
	ok, err := r.Claim(context.Background(), db, claim, claim.ClaimedAt.Add(-10*time.Minute))
	require.NoError(t, err)
	return ok
}
