package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/picklepickle/picklepay/internal/paymentlock"
	dbutil "github.com/picklepickle/picklepay/pkg/db"
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
			name: "lock_contended",
			err:  fmt.Errorf("reconcile: %w", paymentlock.ErrLockNotAcquired),
			want: SchedulerJobReasonLockContended,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "io",
			err:  dbutil.WrapIO("load payment", errors.New("connection reset")),
			want: SchedulerJobReasonIO,
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

func TestIsSchedulerErrorRetryable(t *testing.T) {
	if !IsSchedulerErrorRetryable(dbutil.WrapIO("insert event", errors.New("eof"))) {
		t.Fatalf("expected io errors to be retryable")
	}
	if IsSchedulerErrorRetryable(errors.New("no_active_destination_account")) {
		t.Fatalf("expected business errors to be final for this run")
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "picklepay",
		Environment: "test",
	})

	metrics.AddBatchProcessed("poll_pending", "payments", 3)
	metrics.AddBatchProcessed("poll_pending", "payments", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("poll_pending", "payments"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}
