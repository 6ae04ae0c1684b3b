package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return Summary{Scanned: 2}, s.err
}

func (s *countingSweeper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memoryLock struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemoryLock() *memoryLock {
	return &memoryLock{held: map[string]string{}}
}

func (l *memoryLock) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := key + "#token"
	l.held[key] = token
	return token, true, nil
}

func (l *memoryLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

func newScheduler(t *testing.T, runAt string, clk clock.Clock, sweeper Sweeper, lock Lock, policy config.Policy) *Scheduler {
	t.Helper()
	cfg := config.Config{}
	cfg.Scheduler.RunAt = runAt
	sched, err := NewScheduler(SchedulerParam{
		Log:     zap.NewNop(),
		Clock:   clk,
		Config:  cfg,
		Policy:  config.NewStaticPolicyHolder(policy),
		Sweeper: sweeper,
		GenID:   dbtest.Node(t),
		Lock:    lock,
	})
	require.NoError(t, err)
	return sched
}

func TestNextRun(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	sched := newScheduler(t, "09:00", clk, &countingSweeper{}, nil, config.DefaultPolicy())

	assert.Equal(t,
		time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		sched.NextRun(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), time.UTC).UTC())
	assert.Equal(t,
		time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
		sched.NextRun(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), time.UTC).UTC())
	assert.Equal(t,
		time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		sched.NextRun(time.Date(2025, 3, 31, 22, 0, 0, 0, time.UTC), time.UTC).UTC())
}

func TestNextRunUsesPolicyTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	sched := newScheduler(t, "09:00", clk, &countingSweeper{}, nil, config.DefaultPolicy())

	// 04:00 UTC is 09:30 in Kolkata, so the next run is tomorrow 03:30 UTC.
	next := sched.NextRun(time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 3, 11, 3, 30, 0, 0, time.UTC), next.UTC())
}

func TestNewSchedulerRejectsBadRunAt(t *testing.T) {
	cfg := config.Config{}
	cfg.Scheduler.RunAt = "25:99"
	_, err := NewScheduler(SchedulerParam{
		Log:    zap.NewNop(),
		Clock:  clock.SystemClock{},
		Config: cfg,
		Policy: config.NewStaticPolicyHolder(config.DefaultPolicy()),
	})
	assert.ErrorIs(t, err, ErrInvalidRunAt)
}

func TestRunOnceSweepsOncePerDayAcrossReplicas(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	lock := newMemoryLock()
	sweeper := &countingSweeper{}
	replicaA := newScheduler(t, "09:00", clk, sweeper, lock, config.DefaultPolicy())
	replicaB := newScheduler(t, "09:00", clk, sweeper, lock, config.DefaultPolicy())

	summary, err := replicaA.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)

	_, err = replicaB.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Equal(t, 1, sweeper.Calls())

	clk.Advance(24 * time.Hour)
	_, err = replicaB.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sweeper.Calls())
}

func TestFailedSweepReleasesLock(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	lock := newMemoryLock()
	sweeper := &countingSweeper{err: errors.New("db down")}
	sched := newScheduler(t, "09:00", clk, sweeper, lock, config.DefaultPolicy())

	_, err := sched.RunOnce(context.Background())
	require.Error(t, err)

	sweeper.mu.Lock()
	sweeper.err = nil
	sweeper.mu.Unlock()

	_, err = sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sweeper.Calls())
}

func TestRunOnceWithoutLockAlwaysRuns(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	sweeper := &countingSweeper{}
	sched := newScheduler(t, "09:00", clk, sweeper, nil, config.DefaultPolicy())

	for range 2 {
		_, err := sched.RunOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, sweeper.Calls())
}
