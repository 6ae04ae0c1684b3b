package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/dbtest"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"github.com/smallbiznis/ticketflow/internal/token/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (tokendomain.Service, *clock.FakeClock) {
	t.Helper()
	db := dbtest.Open(t, &tokendomain.NotificationToken{})
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	return NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  repository.Provide(),
	}), clk
}

func TestRegisterIsLastWriteWins(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	key := tenant.Key{TenantID: "t1", AppID: "a1"}

	_, err := svc.Register(ctx, key, tokendomain.RegisterRequest{Role: "engineer", UserID: "alice", Token: "tok-1"})
	require.NoError(t, err)
	clk.Advance(time.Hour)
	_, err = svc.Register(ctx, key, tokendomain.RegisterRequest{Role: "ENGINEER", UserID: "alice", Token: "tok-2"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, key, tokendomain.RoleEngineer, "alice")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.Token)

	all, err := svc.ListByRole(ctx, key, tokendomain.RoleEngineer)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegisterValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	key := tenant.Key{TenantID: "t1", AppID: "a1"}

	_, err := svc.Register(ctx, key, tokendomain.RegisterRequest{Role: "owner", UserID: "u", Token: "x"})
	assert.ErrorIs(t, err, tokendomain.ErrInvalidRole)
	_, err = svc.Register(ctx, key, tokendomain.RegisterRequest{Role: "admin", UserID: " ", Token: "x"})
	assert.ErrorIs(t, err, tokendomain.ErrInvalidUserID)
	_, err = svc.Register(ctx, key, tokendomain.RegisterRequest{Role: "admin", UserID: "u", Token: ""})
	assert.ErrorIs(t, err, tokendomain.ErrInvalidToken)
	_, err = svc.Register(ctx, tenant.Key{}, tokendomain.RegisterRequest{Role: "admin", UserID: "u", Token: "x"})
	assert.ErrorIs(t, err, tenant.ErrInvalidKey)
}

func TestTokensAreTenantScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, tenant.Key{TenantID: "t1", AppID: "a1"}, tokendomain.RegisterRequest{Role: "admin", UserID: "root", Token: "x"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, tenant.Key{TenantID: "t2", AppID: "a1"}, tokendomain.RoleAdmin, "root")
	assert.ErrorIs(t, err, tokendomain.ErrTokenNotFound)
}

func TestPruneKeepsNewerRegistration(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	key := tenant.Key{TenantID: "t1", AppID: "a1"}

	_, err := svc.Register(ctx, key, tokendomain.RegisterRequest{Role: "customer", UserID: "c1", Token: "new"})
	require.NoError(t, err)

	pruned, err := svc.Prune(ctx, key, tokendomain.RoleCustomer, "c1", "old")
	require.NoError(t, err)
	assert.False(t, pruned)

	pruned, err = svc.Prune(ctx, key, tokendomain.RoleCustomer, "c1", "new")
	require.NoError(t, err)
	assert.True(t, pruned)

	_, err = svc.Get(ctx, key, tokendomain.RoleCustomer, "c1")
	assert.ErrorIs(t, err, tokendomain.ErrTokenNotFound)
}
