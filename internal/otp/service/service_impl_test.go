package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/dbtest"
	"github.com/smallbiznis/ticketflow/internal/invoice/render"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	mailrepository "github.com/smallbiznis/ticketflow/internal/mailqueue/repository"
	mailservice "github.com/smallbiznis/ticketflow/internal/mailqueue/service"
	otpdomain "github.com/smallbiznis/ticketflow/internal/otp/domain"
	"github.com/smallbiznis/ticketflow/internal/otp/repository"
	"github.com/smallbiznis/ticketflow/internal/providers/email/emailtest"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testKey = tenant.Key{TenantID: "t1", AppID: "a1"}

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	svc   *Service
	codes []string
}

func newFixture(t *testing.T, codes ...string) *fixture {
	t.Helper()
	db := dbtest.Open(t, &otpdomain.Code{}, &maildomain.Item{}, &changefeed.Change{})
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	node := dbtest.Node(t)
	log := zap.NewNop()
	mail := mailservice.NewService(mailservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: mailrepository.Provide(),
		Recorder: changefeed.NewRecorder(node, clk), Transport: &emailtest.Transport{},
	})
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      log,
		Clock:    clk,
		Policy:   config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Repo:     repository.Provide(),
		Mail:     mail,
		Renderer: render.NewRenderer(),
	}).(*Service)

	f := &fixture{db: db, clock: clk, svc: svc, codes: codes}
	svc.generate = func() (string, error) {
		code := f.codes[0]
		f.codes = f.codes[1:]
		return code, nil
	}
	return f
}

func (f *fixture) stored(t *testing.T, email string) otpdomain.Code {
	t.Helper()
	var code otpdomain.Code
	require.NoError(t, f.db.Where("email = ?", email).Take(&code).Error)
	return code
}

func TestIssueStoresHashAndEmailsCode(t *testing.T) {
	f := newFixture(t, "042917")
	ctx := context.Background()

	res, err := f.svc.Issue(ctx, testKey, "  Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", res.Email)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), res.ExpiresAt)

	code := f.stored(t, "ana@example.com")
	assert.NotContains(t, code.CodeHash, "042917")
	assert.Zero(t, code.Attempts)

	var items []maildomain.Item
	require.NoError(t, f.db.Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "ana@example.com", items[0].To)
	assert.Contains(t, items[0].Subject, "verification code")
	assert.Contains(t, items[0].HTML, "042917")
}

func TestVerifyIsSingleUse(t *testing.T) {
	f := newFixture(t, "042917")
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.Verify(ctx, testKey, "ANA@example.com", "042917"))
	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "042917"), otpdomain.ErrCodeNotFound)
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	f := newFixture(t, "042917")
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "111111"), otpdomain.ErrInvalidCode)
	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "12"), otpdomain.ErrInvalidCode)
	assert.Equal(t, 1, f.stored(t, "ana@example.com").Attempts)

	require.NoError(t, f.svc.Verify(ctx, testKey, "ana@example.com", "042917"))
}

func TestVerifyLocksAfterTooManyAttempts(t *testing.T) {
	f := newFixture(t, "042917")
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)

	for range maxAttempts {
		assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "000000"), otpdomain.ErrInvalidCode)
	}
	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "042917"), otpdomain.ErrTooManyAttempts)
	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "042917"), otpdomain.ErrCodeNotFound)
}

func TestVerifyExpired(t *testing.T) {
	f := newFixture(t, "042917")
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "042917"), otpdomain.ErrExpired)
	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "042917"), otpdomain.ErrCodeNotFound)
}

func TestReissueSupersedesEarlierCode(t *testing.T) {
	f := newFixture(t, "111111", "222222")
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "111111"), otpdomain.ErrInvalidCode)
	require.NoError(t, f.svc.Verify(ctx, testKey, "ana@example.com", "222222"))
}

func TestCodesAreTenantScoped(t *testing.T) {
	f := newFixture(t, "042917")
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)

	other := tenant.Key{TenantID: "t2", AppID: "a1"}
	assert.ErrorIs(t, f.svc.Verify(ctx, other, "ana@example.com", "042917"), otpdomain.ErrCodeNotFound)
}

func TestIssueValidatesEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Issue(context.Background(), testKey, "not-an-email")
	assert.ErrorIs(t, err, otpdomain.ErrInvalidEmail)
}

func TestVerifyLimitsParallelGuesses(t *testing.T) {
	f := newFixture(t, "042917")
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, testKey, "ana@example.com")
	require.NoError(t, err)

	const guesses = 20
	results := make([]error, guesses)
	var wg sync.WaitGroup
	for i := range guesses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.Verify(ctx, testKey, "ana@example.com", fmt.Sprintf("%06d", 100000+i))
		}(i)
	}
	wg.Wait()

	evaluated := 0
	for _, err := range results {
		switch {
		case errors.Is(err, otpdomain.ErrInvalidCode):
			evaluated++
		case errors.Is(err, otpdomain.ErrTooManyAttempts), errors.Is(err, otpdomain.ErrCodeNotFound):
		default:
			t.Fatalf("unexpected verify result: %v", err)
		}
	}
	assert.Equal(t, maxAttempts, evaluated)
	assert.ErrorIs(t, f.svc.Verify(ctx, testKey, "ana@example.com", "042917"), otpdomain.ErrCodeNotFound)
}
