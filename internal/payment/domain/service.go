package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/picklepickle/picklepay/internal/invoice/domain"
	splitdomain "github.com/picklepickle/picklepay/internal/split/domain"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPayment(ctx context.Context, db *gorm.DB, payment Payment) (bool, error)
	FindPayment(ctx context.Context, db *gorm.DB, id string, forUpdate bool) (*Payment, error)
	FindByOrder(ctx context.Context, db *gorm.DB, provider, orderID string) (*Payment, error)
	UpdateFold(ctx context.Context, db *gorm.DB, update FoldUpdate) (bool, error)
	AdvanceStatus(ctx context.Context, db *gorm.DB, id string, from, to Status, now time.Time) (bool, error)
	SetLastError(ctx context.Context, db *gorm.DB, id string, message *string, now time.Time) error
	RequestPoll(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error)
	ListPollCandidates(ctx context.Context, db *gorm.DB, createdBefore, createdAfter time.Time, limit int) ([]Payment, error)
	ListStalled(ctx context.Context, db *gorm.DB, updatedBefore time.Time, limit int) ([]Payment, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event EventRecord) (bool, error)
	FindEventByProviderID(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	ListEvents(ctx context.Context, db *gorm.DB, paymentID string) ([]EventRecord, error)

	InsertAnomaly(ctx context.Context, db *gorm.DB, anomaly Anomaly) (bool, error)
	FindAnomaly(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Anomaly, error)
	ListAnomalies(ctx context.Context, db *gorm.DB, filter AnomalyFilter) ([]Anomaly, error)
	ResolveAnomaly(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}

type Service interface {
	Open(ctx context.Context, req OpenRequest) (*Payment, error)
	Get(ctx context.Context, id string) (*PaymentView, error)
	FindByOrder(ctx context.Context, provider, orderID string) (*Payment, error)
	// Record appends one event and re-derives the payment status in the same transaction.
	// A repeated provider event id is reported with Accepted=false, not as an error.
	Record(ctx context.Context, req RecordRequest) (RecordResult, error)
	// Reconcile re-folds the event log and retries pending side effects.
	Reconcile(ctx context.Context, id string) (*Payment, error)
	// ConfirmReturn flags a pending payment for polling. It never records an event.
	ConfirmReturn(ctx context.Context, req ConfirmReturnRequest) (*Payment, error)
	// PollStatus asks the provider for the current status and records it only when it changes the fold.
	PollStatus(ctx context.Context, id string) (PollResult, error)
	ListPollCandidates(ctx context.Context, limit int) ([]Payment, error)
	ListStalled(ctx context.Context, limit int) ([]Payment, error)
	ListAnomalies(ctx context.Context, req ListAnomaliesRequest) ([]Anomaly, error)
	ResolveAnomaly(ctx context.Context, id snowflake.ID, note string) (*Anomaly, error)
}

type OpenRequest struct {
	ID              string `json:"id"`
	BookingID       string `json:"booking_id"`
	VenueID         string `json:"venue_id"`
	Provider        string `json:"provider"`
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type RecordRequest struct {
	PaymentID       string
	EventType       string
	Source          Source
	ProviderEventID string
	Payload         []byte
}

type RecordResult struct {
	Accepted bool         `json:"accepted"`
	EventID  snowflake.ID `json:"event_id"`
	Status   Status       `json:"status"`
}

type ConfirmReturnRequest struct {
	Provider string `json:"provider"`
	OrderID  string `json:"order_id"`
	Success  bool   `json:"success"`
}

type PollResult struct {
	Recorded bool   `json:"recorded"`
	Status   Status `json:"status"`
}

type ListAnomaliesRequest struct {
	PaymentID       string
	IncludeResolved bool
	Limit           int
}

type AnomalyFilter struct {
	PaymentID       string
	IncludeResolved bool
	Limit           int
}

type FoldUpdate struct {
	ID              string
	ExpectedVersion int64
	Status          Status
	LastEventID     int64
	CapturedAt      *time.Time
	FailedAt        *time.Time
	RefundedAt      *time.Time
	UpdatedAt       time.Time
}

// PaymentView is a payment with everything recorded against it.
type PaymentView struct {
	Payment   Payment                    `json:"payment"`
	Events    []EventRecord              `json:"events"`
	Splits    []splitdomain.PaymentSplit `json:"splits"`
	Invoice   *invoicedomain.Invoice     `json:"invoice,omitempty"`
	Anomalies []Anomaly                  `json:"anomalies"`
}

var (
	ErrDuplicateEvent        = errors.New("duplicate_event")
	ErrPaymentNotFound       = errors.New("payment_not_found")
	ErrDuplicatePayment      = errors.New("duplicate_payment")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidSource         = errors.New("invalid_source")
	ErrInvalidPayment        = errors.New("invalid_payment")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrReconciliationAnomaly = errors.New("reconciliation_anomaly")
	ErrConcurrentUpdate      = errors.New("concurrent_update")
	ErrAnomalyNotFound       = errors.New("anomaly_not_found")
)

// WebhookService turns provider callbacks into recorded payment events.
type WebhookService interface {
	// IngestWebhook verifies, parses and records one callback. The returned Ack
	// is the provider-specific response; it is zero when no adapter matched.
	IngestWebhook(ctx context.Context, provider string, req WebhookRequest) (Ack, error)
}
