package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	obsmetrics "github.com/smallbiznis/ticketflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	jobName = "reminder_sweep"

	lockKeyPrefix = "ticketflow:reminder:sweep:"
	lockTTL       = 23 * time.Hour

	defaultRunAt      = "09:00"
	defaultJobTimeout = 30 * time.Minute
)

var (
	ErrInvalidRunAt = errors.New("reminder_invalid_run_at")
	ErrLockHeld     = errors.New("reminder_sweep_locked")
)

// Sweeper runs one reminder sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (Summary, error)
}

// Lock is the cross-replica lock that keeps the sweep to one run per day.
type Lock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Scheduler struct {
	log     *zap.Logger
	clock   clock.Clock
	policy  *config.PolicyHolder
	sweeper Sweeper
	lock    Lock
	genID   *snowflake.Node

	hour, minute int
	timeout      time.Duration
}

type SchedulerParam struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Config  config.Config
	Policy  *config.PolicyHolder
	Sweeper Sweeper
	GenID   *snowflake.Node
	Lock    Lock `optional:"true"`
}

func NewScheduler(p SchedulerParam) (*Scheduler, error) {
	runAt := strings.TrimSpace(p.Config.Scheduler.RunAt)
	if runAt == "" {
		runAt = defaultRunAt
	}
	hour, minute, err := parseRunAt(runAt)
	if err != nil {
		return nil, err
	}
	timeout := p.Config.Scheduler.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Scheduler{
		log:     p.Log.Named("reminder.scheduler").With(zap.String("component", "scheduler")),
		clock:   p.Clock,
		policy:  p.Policy,
		sweeper: p.Sweeper,
		lock:    p.Lock,
		genID:   p.GenID,
		hour:    hour,
		minute:  minute,
		timeout: timeout,
	}, nil
}

func parseRunAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRunAt, value)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the first run time strictly after now, at the configured
// wall-clock time in loc.
func (s *Scheduler) NextRun(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, loc)
	}
	return next
}

func (s *Scheduler) RunForever(ctx context.Context) {
	schedMetrics := obsmetrics.Scheduler()
	for {
		now := s.clock.Now()
		next := s.NextRun(now, s.policy.Get().Location())
		s.log.Info("reminder.scheduler.next_run", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		schedMetrics.ObserveRunLoopLag(s.clock.Now().Sub(next))
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrLockHeld) {
			s.log.Warn("reminder.scheduler.run_failed", zap.Error(err))
		}
	}
}

// RunOnce runs today's sweep unless another replica holds today's lock, in
// which case it returns ErrLockHeld. The lock is kept after a successful
// sweep so later wake-ups on the same day skip.
func (s *Scheduler) RunOnce(parent context.Context) (Summary, error) {
	day := s.clock.Now().In(s.policy.Get().Location()).Format("2006-01-02")
	runID := s.genID.Generate().String()
	log := s.log.With(
		zap.String("job", jobName),
		zap.String("run_id", runID),
		zap.String("day", day),
	)
	schedMetrics := obsmetrics.Scheduler()

	key := lockKeyPrefix + day
	var token string
	if s.lock != nil {
		var (
			ok  bool
			err error
		)
		token, ok, err = s.lock.TryLock(parent, key, lockTTL)
		if err != nil {
			schedMetrics.IncJobError(jobName, err)
			return Summary{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			schedMetrics.IncJobSkipped(jobName, obsmetrics.SchedulerSkipReasonLockHeld)
			log.Info("reminder.job.skipped", zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld))
			return Summary{}, ErrLockHeld
		}
	}

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	log.Info("reminder.job.start")
	schedMetrics.IncJobRun(jobName)
	summary, err := s.sweeper.Sweep(ctx)
	duration := s.clock.Now().Sub(start)
	schedMetrics.ObserveJobDuration(jobName, duration)
	schedMetrics.AddBatchProcessed(jobName, "subscriptions", summary.Scanned)

	fields := []zap.Field{
		zap.Int64("duration_ms", duration.Milliseconds()),
		zap.Int("processed_count", summary.Scanned),
		zap.Int("error_count", summary.Failed),
	}
	if err == nil {
		if summary.Failed > 0 {
			log.Warn("reminder.job.finish", fields...)
		} else {
			log.Info("reminder.job.finish", fields...)
		}
		return summary, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(jobName)
	}
	schedMetrics.IncJobError(jobName, err)
	log.Error("reminder.job.failed", append(fields,
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.String("reason", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Error(err),
	)...)

	// A failed sweep gives the lock back so a manual or later run can retry.
	if s.lock != nil {
		if releaseErr := s.lock.Release(context.WithoutCancel(parent), key, token); releaseErr != nil {
			log.Warn("reminder.lock.release_failed", zap.Error(releaseErr))
		}
	}
	return summary, err
}
