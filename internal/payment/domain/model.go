package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCaptured  Status = "CAPTURED"
	StatusSplitDone Status = "SPLIT_DONE"
	StatusInvoiced  Status = "INVOICED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// IsTerminal reports whether no further event can change the status.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusRefunded
}

type Source string

const (
	SourceWebhook Source = "webhook"
	SourcePoll    Source = "poll"
)

const (
	EventTypeSucceeded      = "succeeded"
	EventTypeFailed         = "failed"
	EventTypeRefunded       = "refunded"
	EventTypeAuthorized     = "authorized"
	EventTypePending        = "pending"
	EventTypeAmountMismatch = "amount_mismatch"
)

type AnomalyKind string

const (
	AnomalySuccessAfterFailure AnomalyKind = "success_after_failure"
	AnomalyRefundBeforeCapture AnomalyKind = "refund_before_capture"
)

// Payment is the aggregate every event, split and invoice hangs off.
// Status is materialized from the event log, never set directly by callers.
type Payment struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	BookingID       string     `json:"booking_id"`
	VenueID         string     `json:"venue_id"`
	Provider        string     `json:"provider"`
	ProviderOrderID string     `json:"provider_order_id"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	Status          Status     `json:"status"`
	LastEventID     int64      `json:"last_event_id"`
	Version         int64      `json:"version"`
	CapturedAt      *time.Time `json:"captured_at,omitempty"`
	SplitAt         *time.Time `json:"split_at,omitempty"`
	InvoicedAt      *time.Time `json:"invoiced_at,omitempty"`
	FailedAt        *time.Time `json:"failed_at,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`
	PollRequestedAt *time.Time `json:"poll_requested_at,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// EventRecord is one immutable signal about a payment.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	PaymentID       string         `json:"payment_id"`
	Provider        string         `json:"provider"`
	EventType       string         `json:"event_type"`
	Source          Source         `json:"source"`
	ProviderEventID *string        `json:"provider_event_id,omitempty"`
	Payload         datatypes.JSON `json:"payload"`
	ReceivedAt      time.Time      `json:"received_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// Anomaly queues an event the state machine refused to apply for manual review.
type Anomaly struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentID  string       `json:"payment_id"`
	EventID    snowflake.ID `json:"event_id"`
	Kind       AnomalyKind  `json:"kind"`
	Detail     string       `json:"detail"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

func (Anomaly) TableName() string { return "payment_anomalies" }
