// Package state derives a payment's status from its event log.
//
// The fold is pure: the same events always produce the same outcome,
// whatever order they arrived in, so callers can re-run it at any time.
package state

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/picklepickle/picklepay/internal/payment/domain"
)

// Class is the effect an event type has on the fold.
type Class int

const (
	ClassInformational Class = iota
	ClassSucceeded
	ClassFailed
	ClassRefunded
)

var classes = map[string]Class{
	"succeeded":         ClassSucceeded,
	"payment_succeeded": ClassSucceeded,
	"captured":          ClassSucceeded,
	"paid":              ClassSucceeded,
	"success":           ClassSucceeded,
	"failed":            ClassFailed,
	"payment_failed":    ClassFailed,
	"cancelled":         ClassFailed,
	"canceled":          ClassFailed,
	"expired":           ClassFailed,
	"refunded":          ClassRefunded,
	"refund_succeeded":  ClassRefunded,
}

// Classify maps a provider event type onto the fold vocabulary.
// Unknown types are informational and never move the status.
func Classify(eventType string) Class {
	if class, ok := classes[strings.ToLower(strings.TrimSpace(eventType))]; ok {
		return class
	}
	return ClassInformational
}

// Event is the part of an event record the fold reads.
type Event struct {
	ID         snowflake.ID
	EventType  string
	ReceivedAt time.Time
}

// FromRecords adapts stored event records for Derive.
func FromRecords(records []domain.EventRecord) []Event {
	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, Event{ID: record.ID, EventType: record.EventType, ReceivedAt: record.ReceivedAt})
	}
	return events
}

type Anomaly struct {
	EventID snowflake.ID
	Kind    domain.AnomalyKind
}

// Outcome is the result of folding an event log.
type Outcome struct {
	Status         domain.Status
	CaptureEventID snowflake.ID
	LastEventID    snowflake.ID
	CapturedAt     *time.Time
	FailedAt       *time.Time
	RefundedAt     *time.Time
	Anomalies      []Anomaly
}

// Derive folds events ordered by (ReceivedAt, ID) into a status.
// Only PENDING, CAPTURED, FAILED and REFUNDED are reachable from events.
func Derive(events []Event) Outcome {
	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ReceivedAt.Equal(ordered[j].ReceivedAt) {
			return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	out := Outcome{Status: domain.StatusPending}
	for _, ev := range ordered {
		if ev.ID > out.LastEventID {
			out.LastEventID = ev.ID
		}
		at := ev.ReceivedAt
		switch Classify(ev.EventType) {
		case ClassSucceeded:
			switch out.Status {
			case domain.StatusPending:
				out.Status = domain.StatusCaptured
				out.CaptureEventID = ev.ID
				out.CapturedAt = &at
			case domain.StatusFailed:
				out.Anomalies = append(out.Anomalies, Anomaly{EventID: ev.ID, Kind: domain.AnomalySuccessAfterFailure})
			}
		case ClassFailed:
			if out.Status == domain.StatusPending {
				out.Status = domain.StatusFailed
				out.FailedAt = &at
			}
		case ClassRefunded:
			switch out.Status {
			case domain.StatusCaptured:
				out.Status = domain.StatusRefunded
				out.RefundedAt = &at
			case domain.StatusPending:
				out.Anomalies = append(out.Anomalies, Anomaly{EventID: ev.ID, Kind: domain.AnomalyRefundBeforeCapture})
			}
		}
	}
	return out
}

// Advance merges a freshly derived status into the stored one.
// Milestones reached by side effects (SPLIT_DONE, INVOICED) survive a fold
// that still says CAPTURED. Terminal statuses never change.
func Advance(current, folded domain.Status) domain.Status {
	if current.IsTerminal() || current == folded {
		return current
	}
	switch folded {
	case domain.StatusRefunded:
		if current == domain.StatusCaptured || current == domain.StatusSplitDone || current == domain.StatusInvoiced {
			return domain.StatusRefunded
		}
	case domain.StatusFailed, domain.StatusCaptured:
		if current == domain.StatusPending {
			return folded
		}
	}
	return current
}

var transitions = map[domain.Status][]domain.Status{
	domain.StatusPending:   {domain.StatusCaptured, domain.StatusFailed},
	domain.StatusCaptured:  {domain.StatusSplitDone, domain.StatusRefunded},
	domain.StatusSplitDone: {domain.StatusInvoiced, domain.StatusRefunded},
	domain.StatusInvoiced:  {domain.StatusRefunded},
}

// CanTransition reports whether from may move directly to to.
func CanTransition(from, to domain.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Rank orders statuses along the happy path. Terminal statuses rank highest.
func Rank(status domain.Status) int {
	switch status {
	case domain.StatusPending:
		return 0
	case domain.StatusCaptured:
		return 1
	case domain.StatusSplitDone:
		return 2
	case domain.StatusInvoiced:
		return 3
	case domain.StatusFailed, domain.StatusRefunded:
		return 4
	default:
		return -1
	}
}
