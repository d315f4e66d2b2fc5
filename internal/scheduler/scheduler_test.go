package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/picklepickle/picklepay/internal/clock"
	invoicedomain "github.com/picklepickle/picklepay/internal/invoice/domain"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	paymentdomain "github.com/picklepickle/picklepay/internal/payment/domain"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

type fakePaymentSvc struct {
	paymentdomain.Service

	mu         sync.Mutex
	candidates []paymentdomain.Payment
	stalled    []paymentdomain.Payment
	polled     []string
	reconciled []string
	pollErr    map[string]error
}

func (f *fakePaymentSvc) ListPollCandidates(context.Context, int) ([]paymentdomain.Payment, error) {
	return f.candidates, nil
}

func (f *fakePaymentSvc) ListStalled(context.Context, int) ([]paymentdomain.Payment, error) {
	return f.stalled, nil
}

func (f *fakePaymentSvc) PollStatus(_ context.Context, id string) (paymentdomain.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled = append(f.polled, id)
	if err := f.pollErr[id]; err != nil {
		return paymentdomain.PollResult{}, err
	}
	return paymentdomain.PollResult{Recorded: true, Status: paymentdomain.StatusCaptured}, nil
}

func (f *fakePaymentSvc) Reconcile(_ context.Context, id string) (*paymentdomain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciled = append(f.reconciled, id)
	return &paymentdomain.Payment{ID: id, Status: paymentdomain.StatusInvoiced}, nil
}

type fakeInvoiceSvc struct {
	invoicedomain.Service

	unrendered []invoicedomain.Invoice
	renderErr  error
	rendered   atomic.Int32
}

func (f *fakeInvoiceSvc) ListUnrendered(context.Context, int) ([]invoicedomain.Invoice, error) {
	return f.unrendered, nil
}

func (f *fakeInvoiceSvc) RenderDocument(_ context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	f.rendered.Add(1)
	url := "https://files.example/invoices/" + id.String() + ".pdf"
	return &invoicedomain.Invoice{ID: id, FileURL: &url}, nil
}

func newTestScheduler(t *testing.T, payments *fakePaymentSvc, invoices *fakeInvoiceSvc, cfg Config) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "picklepay", Environment: "test"})

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	s, err := New(Params{
		Log:        zap.NewNop(),
		PaymentSvc: payments,
		InvoiceSvc: invoices,
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		Config:     cfg,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s, registry
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	s, registry := newTestScheduler(t, &fakePaymentSvc{}, &fakeInvoiceSvc{}, Config{})

	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "picklepay",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "picklepay_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "picklepay",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "picklepay_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunJobWrapsHardErrors(t *testing.T) {
	s, _ := newTestScheduler(t, &fakePaymentSvc{}, &fakeInvoiceSvc{}, Config{})
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "broken_job", 0, time.Second, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestRunOnceDrivesEveryJob(t *testing.T) {
	payments := &fakePaymentSvc{
		candidates: []paymentdomain.Payment{{ID: "pay_1", Provider: "momo"}, {ID: "pay_2", Provider: "vnpay"}},
		stalled:    []paymentdomain.Payment{{ID: "pay_3", Status: paymentdomain.StatusCaptured}},
	}
	invoices := &fakeInvoiceSvc{unrendered: []invoicedomain.Invoice{{ID: 11}, {ID: 12}, {ID: 13}}}
	s, registry := newTestScheduler(t, payments, invoices, Config{Concurrency: 2})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if len(payments.polled) != 2 {
		t.Fatalf("expected 2 polls, got %v", payments.polled)
	}
	if len(payments.reconciled) != 1 || payments.reconciled[0] != "pay_3" {
		t.Fatalf("expected pay_3 reconciled, got %v", payments.reconciled)
	}
	if got := invoices.rendered.Load(); got != 3 {
		t.Fatalf("expected 3 renders, got %d", got)
	}

	labels := map[string]string{"service": "picklepay", "env": "test", "job": JobPollPending, "resource": "payment"}
	if got := getCounterValue(t, registry, "picklepay_scheduler_batch_processed_total", labels); got != 2 {
		t.Fatalf("expected 2 processed payments, got %v", got)
	}
}

func TestRunOnceJoinsItemFailures(t *testing.T) {
	unreachable := errors.New("provider unreachable")
	payments := &fakePaymentSvc{
		candidates: []paymentdomain.Payment{{ID: "pay_1"}, {ID: "pay_2"}},
		pollErr:    map[string]error{"pay_2": unreachable},
	}
	s, _ := newTestScheduler(t, payments, &fakeInvoiceSvc{}, Config{})

	err := s.RunOnce(context.Background())
	if !errors.Is(err, unreachable) {
		t.Fatalf("expected joined provider error, got %v", err)
	}
	if len(payments.polled) != 2 {
		t.Fatalf("a failing payment must not stop the batch, polled %v", payments.polled)
	}
}

func TestRenderJobWithoutStorageIsDeferred(t *testing.T) {
	invoices := &fakeInvoiceSvc{
		unrendered: []invoicedomain.Invoice{{ID: 21}},
		renderErr:  invoicedomain.ErrStorageNotConfigured,
	}
	s, registry := newTestScheduler(t, &fakePaymentSvc{}, invoices, Config{EnabledJobs: []string{"RENDER_INVOICES"}})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	labels := map[string]string{"service": "picklepay", "env": "test", "job": JobRenderInvoices, "reason": "storage_not_configured"}
	if got := getCounterValue(t, registry, "picklepay_scheduler_batch_deferred_total", labels); got != 1 {
		t.Fatalf("expected deferred count 1, got %v", got)
	}
}

func TestEnabledJobsFilter(t *testing.T) {
	payments := &fakePaymentSvc{
		candidates: []paymentdomain.Payment{{ID: "pay_1"}},
		stalled:    []paymentdomain.Payment{{ID: "pay_2"}},
	}
	s, _ := newTestScheduler(t, payments, &fakeInvoiceSvc{}, Config{EnabledJobs: []string{JobAdvanceCaptured}})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(payments.polled) != 0 {
		t.Fatalf("poll job should be disabled, polled %v", payments.polled)
	}
	if len(payments.reconciled) != 1 {
		t.Fatalf("expected one reconcile, got %v", payments.reconciled)
	}
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
