package domain

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// WebhookRequest carries an inbound provider callback as received.
type WebhookRequest struct {
	Body    []byte
	Query   url.Values
	Headers http.Header
}

// ProviderEvent is a verified callback normalized to the payment vocabulary.
type ProviderEvent struct {
	Provider        string
	OrderID         string
	ProviderEventID string
	EventType       string
	Amount          int64
	Payload         []byte
}

// Ack is the response body a provider expects for a callback.
type Ack struct {
	HTTPStatus int
	Body       any
}

// Adapter verifies and parses one provider's callbacks.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, req WebhookRequest) error
	Parse(ctx context.Context, req WebhookRequest) (*ProviderEvent, error)
	// Ack builds the provider response for the outcome of handling a callback.
	Ack(err error) Ack
}

type StatusQuery struct {
	OrderID   string
	Amount    int64
	CreatedAt time.Time
}

// ProviderStatus is the provider's answer to a status query.
// A nil result with a nil error means the provider has nothing final yet.
type ProviderStatus struct {
	EventType       string
	ProviderEventID string
	Raw             []byte
}

//go:generate mockgen -source=provider.go -destination=../mocks/mock_provider.go -package=mocks
type StatusQuerier interface {
	Provider() string
	QueryStatus(ctx context.Context, query StatusQuery) (*ProviderStatus, error)
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrProviderNotFound = errors.New("provider_not_found")
	// ErrEventIgnored marks a callback that verified but carries nothing to record.
	ErrEventIgnored  = errors.New("event_ignored")
	ErrProviderQuery = errors.New("provider_query_failed")
)

// QuerierSource resolves the status querier for a provider.
type QuerierSource interface {
	Querier(provider string) (StatusQuerier, error)
}

// AdapterSource resolves the webhook adapter for a provider.
type AdapterSource interface {
	Adapter(provider string) (Adapter, error)
}
