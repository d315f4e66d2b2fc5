package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("provider", "momo"),
		attribute.String("payment_id", "pay_1"),
		attribute.String("event_type", "succeeded"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "payment_id" {
			t.Fatalf("payment_id must not become a metric label")
		}
	}
}

func TestRecordersTolerateNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordPaymentEvent(context.Background(), "momo", "succeeded", "webhook", "accepted")
	m.RecordAnomaly(context.Background(), "success_after_failure")
	m.RecordInvoice(context.Background())
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "picklepay"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordSplit(context.Background(), "vnpay")
	m.RecordLedgerEntry(context.Background(), "split")
}
