package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/picklepickle/picklepay/internal/audit/domain"
	"github.com/picklepickle/picklepay/internal/clock"
	invoicedomain "github.com/picklepickle/picklepay/internal/invoice/domain"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	paymentdomain "github.com/picklepickle/picklepay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	InvoiceSvc invoicedomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     Config `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	paymentSvc paymentdomain.Service
	invoiceSvc invoicedomain.Service
	auditSvc   auditdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.PaymentSvc == nil || p.InvoiceSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		paymentSvc: p.PaymentSvc,
		invoiceSvc: p.InvoiceSvc,
		auditSvc:   p.AuditSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errors() == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next run picks up the rest
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job once, in order.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Timeout time.Duration
		Run     func(context.Context) error
	}{
		{JobPollPending, s.cfg.PollTimeout, s.PollPendingJob},
		{JobAdvanceCaptured, s.cfg.AdvanceTimeout, s.AdvanceCapturedJob},
		{JobRenderInvoices, s.cfg.RenderTimeout, s.RenderInvoicesJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, job.Timeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// PollPendingJob asks providers about payments still waiting for a callback.
func (s *Scheduler) PollPendingJob(ctx context.Context) error {
	ctx, run, _ := s.ensureJobRun(ctx, JobPollPending, s.cfg.BatchSize)
	payments, err := s.paymentSvc.ListPollCandidates(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	var recorded int
	var mu sync.Mutex
	err = s.forEach(ctx, run, JobPollPending, len(payments), func(ctx context.Context, i int) error {
		payment := payments[i]
		result, err := s.paymentSvc.PollStatus(ctx, payment.ID)
		if err != nil {
			s.logSchedulerError(ctx, run, "payment poll failed", JobPollPending, payment.ID, err,
				zap.String("provider", payment.Provider),
			)
			return err
		}
		if result.Recorded {
			mu.Lock()
			recorded++
			mu.Unlock()
			s.logger(ctx).Info("payment.poll.recorded",
				zap.String("payment_id", payment.ID),
				zap.String("status", string(result.Status)),
			)
		}
		return nil
	})
	obsmetrics.Scheduler().AddBatchProcessed(JobPollPending, "payment", len(payments))
	if recorded > 0 {
		obsmetrics.Scheduler().AddBatchProcessed(JobPollPending, "poll_event", recorded)
	}
	return err
}

// AdvanceCapturedJob re-drives payments whose split, invoice or refund step did not finish.
func (s *Scheduler) AdvanceCapturedJob(ctx context.Context) error {
	ctx, run, _ := s.ensureJobRun(ctx, JobAdvanceCaptured, s.cfg.BatchSize)
	payments, err := s.paymentSvc.ListStalled(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	err = s.forEach(ctx, run, JobAdvanceCaptured, len(payments), func(ctx context.Context, i int) error {
		payment := payments[i]
		updated, err := s.paymentSvc.Reconcile(ctx, payment.ID)
		if err != nil {
			s.logSchedulerError(ctx, run, "payment reconcile failed", JobAdvanceCaptured, payment.ID, err,
				zap.String("status", string(payment.Status)),
			)
			return err
		}
		if updated != nil && updated.Status != payment.Status {
			s.emitAuditEvent(ctx, "payment.reconciled", payment.ID, map[string]any{
				"from": string(payment.Status),
				"to":   string(updated.Status),
			})
		}
		return nil
	})
	obsmetrics.Scheduler().AddBatchProcessed(JobAdvanceCaptured, "payment", len(payments))
	return err
}

// RenderInvoicesJob renders and stores documents for issued invoices that have none yet.
func (s *Scheduler) RenderInvoicesJob(ctx context.Context) error {
	ctx, run, _ := s.ensureJobRun(ctx, JobRenderInvoices, s.cfg.BatchSize)
	invoices, err := s.invoiceSvc.ListUnrendered(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	err = s.forEach(ctx, run, JobRenderInvoices, len(invoices), func(ctx context.Context, i int) error {
		invoice := invoices[i]
		rendered, err := s.invoiceSvc.RenderDocument(ctx, invoice.ID)
		if err != nil {
			s.logSchedulerError(ctx, run, "invoice render failed", JobRenderInvoices, invoice.PaymentID, err,
				zap.String("invoice_number", invoice.Number),
			)
			return err
		}
		if rendered != nil && rendered.FileURL != nil {
			s.logger(ctx).Info("invoice.rendered",
				zap.String("invoice_number", rendered.Number),
				zap.String("file_url", *rendered.FileURL),
			)
		}
		return nil
	})
	if errors.Is(err, invoicedomain.ErrStorageNotConfigured) {
		obsmetrics.Scheduler().IncBatchDeferred(JobRenderInvoices, "storage_not_configured")
		return nil
	}
	obsmetrics.Scheduler().AddBatchProcessed(JobRenderInvoices, "invoice", len(invoices))
	return err
}

// forEach runs fn for every index with bounded concurrency and joins the failures.
// Items not started before the deadline are left for the next run.
func (s *Scheduler) forEach(ctx context.Context, run *jobRun, job string, n int, fn func(ctx context.Context, i int) error) error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		jobErr error
	)
	g.SetLimit(s.cfg.Concurrency)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			obsmetrics.Scheduler().IncBatchDeferred(job, "deadline")
			mu.Lock()
			jobErr = errors.Join(jobErr, ctx.Err())
			mu.Unlock()
			break
		}
		i := i
		g.Go(func() error {
			if err := fn(ctx, i); err != nil {
				mu.Lock()
				jobErr = errors.Join(jobErr, err)
				mu.Unlock()
				return nil
			}
			run.AddProcessed(1)
			return nil
		})
	}
	_ = g.Wait()
	return jobErr
}

func (s *Scheduler) emitAuditEvent(ctx context.Context, action, paymentID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeSystem,
		ActorID:    "scheduler",
		Action:     action,
		TargetType: auditdomain.TargetPayment,
		TargetID:   paymentID,
		Metadata:   metadata,
	}); err != nil {
		s.logger(ctx).Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}
