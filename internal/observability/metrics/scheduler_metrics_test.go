package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  fmt.Errorf("list active: %w", &pgconn.PgError{Code: "40001"}),
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "sqlite_unique",
			err:  errors.New("UNIQUE constraint failed: subscriptions.three_day_sent_for"),
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "canceled",
			err:  fmt.Errorf("sweep: %w", context.Canceled),
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestClassifySchedulerErrorType(t *testing.T) {
	if got := ClassifySchedulerErrorType(gorm.ErrRecordNotFound); got != SchedulerErrorTypeBusinessRule {
		t.Fatalf("expected record-not-found to be business rule, got %q", got)
	}
	if got := ClassifySchedulerErrorType(&pgconn.PgError{Code: "08006"}); got != SchedulerErrorTypeDB {
		t.Fatalf("expected pg error to be db, got %q", got)
	}
	if got := ClassifySchedulerErrorType(errors.New("no recipient")); got != SchedulerErrorTypeBusinessRule {
		t.Fatalf("expected plain error to be business rule, got %q", got)
	}
}

func TestJobSkippedAndRunLoopLag(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{Role: "scheduler"})

	metrics.IncJobRun("reminder_sweep")
	metrics.IncJobSkipped("reminder_sweep", SchedulerSkipReasonLockHeld)
	metrics.IncJobError("reminder_sweep", &pgconn.PgError{Code: "40001"})
	metrics.ObserveRunLoopLag(-time.Second)

	if got := testutil.ToFloat64(metrics.jobSkipped.WithLabelValues("reminder_sweep", SchedulerSkipReasonLockHeld)); got != 1 {
		t.Fatalf("expected 1 skipped run, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.jobErrors.WithLabelValues("reminder_sweep", SchedulerJobReasonSerializationFailure)); got != 1 {
		t.Fatalf("expected 1 serialization failure, got %v", got)
	}
	if got := testutil.CollectAndCount(metrics.runLoopLag.(prometheus.Collector)); got != 1 {
		t.Fatalf("expected run loop lag to be collected, got %d", got)
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "ticketflow",
		Environment: "test",
	})

	metrics.AddBatchProcessed("reminder_sweep", "subscriptions", 3)
	metrics.IncItemFailure("reminder_sweep", errors.New("smtp down"))

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("reminder_sweep", "subscriptions"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
	failures := testutil.ToFloat64(metrics.itemFailures.WithLabelValues("reminder_sweep", SchedulerErrorTypeBusinessRule))
	if failures != 1 {
		t.Fatalf("expected 1 item failure, got %v", failures)
	}
}
