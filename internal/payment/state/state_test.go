package state

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/picklepickle/picklepay/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seq(types ...string) []Event {
	events := make([]Event, 0, len(types))
	for i, eventType := range types {
		events = append(events, Event{
			ID:         snowflake.ID(i + 1),
			EventType:  eventType,
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return events
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassSucceeded, Classify("PAYMENT_SUCCEEDED"))
	assert.Equal(t, ClassSucceeded, Classify(" paid "))
	assert.Equal(t, ClassFailed, Classify("canceled"))
	assert.Equal(t, ClassFailed, Classify("expired"))
	assert.Equal(t, ClassRefunded, Classify("refund_succeeded"))
	assert.Equal(t, ClassInformational, Classify("authorized"))
	assert.Equal(t, ClassInformational, Classify(""))
}

func TestDerive(t *testing.T) {
	cases := []struct {
		name      string
		events    []Event
		status    domain.Status
		anomalies []domain.AnomalyKind
	}{
		{name: "empty log", events: nil, status: domain.StatusPending},
		{name: "informational only", events: seq("authorized", "pending"), status: domain.StatusPending},
		{name: "success captures", events: seq("authorized", "succeeded"), status: domain.StatusCaptured},
		{name: "failure", events: seq("failed"), status: domain.StatusFailed},
		{name: "refund after capture", events: seq("succeeded", "refunded"), status: domain.StatusRefunded},
		{name: "failure after capture ignored", events: seq("succeeded", "failed"), status: domain.StatusCaptured},
		{name: "duplicate success", events: seq("succeeded", "paid"), status: domain.StatusCaptured},
		{
			name:      "success after failure is an anomaly",
			events:    seq("failed", "succeeded"),
			status:    domain.StatusFailed,
			anomalies: []domain.AnomalyKind{domain.AnomalySuccessAfterFailure},
		},
		{
			name:      "refund before capture is an anomaly",
			events:    seq("refunded", "succeeded"),
			status:    domain.StatusCaptured,
			anomalies: []domain.AnomalyKind{domain.AnomalyRefundBeforeCapture},
		},
		{name: "refunded is terminal", events: seq("succeeded", "refunded", "succeeded", "failed"), status: domain.StatusRefunded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Derive(tc.events)
			assert.Equal(t, tc.status, out.Status)
			kinds := make([]domain.AnomalyKind, 0, len(out.Anomalies))
			for _, anomaly := range out.Anomalies {
				kinds = append(kinds, anomaly.Kind)
			}
			if len(tc.anomalies) == 0 {
				assert.Empty(t, kinds)
			} else {
				assert.Equal(t, tc.anomalies, kinds)
			}
		})
	}
}

func TestDeriveOrdersByReceivedAtThenID(t *testing.T) {
	// Stored out of order: the failure arrived first.
	events := []Event{
		{ID: 20, EventType: "succeeded", ReceivedAt: base.Add(time.Minute)},
		{ID: 10, EventType: "failed", ReceivedAt: base},
	}
	out := Derive(events)
	assert.Equal(t, domain.StatusFailed, out.Status)
	require.Len(t, out.Anomalies, 1)
	assert.Equal(t, snowflake.ID(20), out.Anomalies[0].EventID)
	assert.Equal(t, snowflake.ID(20), out.LastEventID)

	tie := []Event{
		{ID: 2, EventType: "failed", ReceivedAt: base},
		{ID: 1, EventType: "succeeded", ReceivedAt: base},
	}
	out = Derive(tie)
	assert.Equal(t, domain.StatusCaptured, out.Status)
	require.NotNil(t, out.CapturedAt)
	assert.Nil(t, out.FailedAt)
}

func TestDeriveTimestamps(t *testing.T) {
	out := Derive(seq("succeeded", "refunded"))
	require.NotNil(t, out.CapturedAt)
	require.NotNil(t, out.RefundedAt)
	assert.Equal(t, base, *out.CapturedAt)
	assert.Equal(t, base.Add(time.Second), *out.RefundedAt)
}

func TestAdvance(t *testing.T) {
	cases := []struct {
		current, folded, want domain.Status
	}{
		{domain.StatusPending, domain.StatusPending, domain.StatusPending},
		{domain.StatusPending, domain.StatusCaptured, domain.StatusCaptured},
		{domain.StatusPending, domain.StatusFailed, domain.StatusFailed},
		{domain.StatusSplitDone, domain.StatusCaptured, domain.StatusSplitDone},
		{domain.StatusInvoiced, domain.StatusCaptured, domain.StatusInvoiced},
		{domain.StatusInvoiced, domain.StatusRefunded, domain.StatusRefunded},
		{domain.StatusSplitDone, domain.StatusRefunded, domain.StatusRefunded},
		{domain.StatusFailed, domain.StatusCaptured, domain.StatusFailed},
		{domain.StatusRefunded, domain.StatusCaptured, domain.StatusRefunded},
		{domain.StatusCaptured, domain.StatusFailed, domain.StatusCaptured},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Advance(tc.current, tc.folded), "%s + %s", tc.current, tc.folded)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.StatusPending, domain.StatusCaptured))
	assert.True(t, CanTransition(domain.StatusCaptured, domain.StatusSplitDone))
	assert.True(t, CanTransition(domain.StatusSplitDone, domain.StatusInvoiced))
	assert.True(t, CanTransition(domain.StatusInvoiced, domain.StatusRefunded))
	assert.False(t, CanTransition(domain.StatusCaptured, domain.StatusInvoiced))
	assert.False(t, CanTransition(domain.StatusFailed, domain.StatusCaptured))
	assert.False(t, CanTransition(domain.StatusRefunded, domain.StatusPending))
}

var eventTypes = gen.OneConstOf("succeeded", "failed", "refunded", "authorized", "pending", "paid", "expired")

func TestFoldProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("arrival order of the slice does not change the outcome", prop.ForAll(
		func(types []string) bool {
			events := seq(types...)
			reversed := make([]Event, len(events))
			for i, ev := range events {
				reversed[len(events)-1-i] = ev
			}
			a, b := Derive(events), Derive(reversed)
			return a.Status == b.Status && a.LastEventID == b.LastEventID && len(a.Anomalies) == len(b.Anomalies)
		},
		gen.SliceOf(eventTypes),
	))

	properties.Property("terminal statuses absorb later events", prop.ForAll(
		func(prefix, suffix []string) bool {
			before := Derive(seq(prefix...)).Status
			if !before.IsTerminal() {
				return true
			}
			return Derive(seq(append(prefix, suffix...)...)).Status == before
		},
		gen.SliceOf(eventTypes),
		gen.SliceOf(eventTypes),
	))

	properties.Property("advancing never moves a payment backwards", prop.ForAll(
		func(types []string, milestone int) bool {
			current := []domain.Status{domain.StatusPending, domain.StatusCaptured, domain.StatusSplitDone, domain.StatusInvoiced}[milestone]
			next := Advance(current, Derive(seq(types...)).Status)
			return Rank(next) >= Rank(current)
		},
		gen.SliceOf(eventTypes),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
