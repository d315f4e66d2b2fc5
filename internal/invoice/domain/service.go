package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByPayment(ctx context.Context, db *gorm.DB, paymentID string) (*Invoice, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	NextSequence(ctx context.Context, db *gorm.DB, scope string) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, invoice Invoice) (bool, error)
	SetFileURL(ctx context.Context, db *gorm.DB, id snowflake.ID, fileURL string) (bool, error)
	ListUnrendered(ctx context.Context, db *gorm.DB, limit int) ([]Invoice, error)
}

type Service interface {
	// IssueInvoice returns the payment's invoice, creating it on first call.
	IssueInvoice(ctx context.Context, req IssueRequest) (*Invoice, error)
	FindByPayment(ctx context.Context, paymentID string) (*Invoice, error)
	ListUnrendered(ctx context.Context, limit int) ([]Invoice, error)
	// RenderDocument renders and stores the invoice PDF and records its URL once.
	RenderDocument(ctx context.Context, id snowflake.ID) (*Invoice, error)
}

// Renderer turns an invoice into a printable document.
type Renderer interface {
	Render(ctx context.Context, invoice Invoice) ([]byte, error)
}

// DocumentStore persists rendered documents and returns their public location.
type DocumentStore interface {
	Put(ctx context.Context, doc Document) (string, error)
}

var (
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
	ErrInvoiceNumberConflict  = errors.New("invoice_number_conflict")
	ErrInvoiceNumberExhausted = errors.New("invoice_number_exhausted")
	ErrInvalidPayment         = errors.New("invalid_payment")
	ErrInvalidBooking         = errors.New("invalid_booking")
	ErrInvalidAmount          = errors.New("invalid_amount")
	ErrInvalidCurrency        = errors.New("invalid_currency")
	ErrStorageNotConfigured   = errors.New("invoice_storage_not_configured")
)
