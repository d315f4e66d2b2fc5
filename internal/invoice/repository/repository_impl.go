package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/picklepickle/picklepay/internal/invoice/domain"
	dbutil "github.com/picklepickle/picklepay/pkg/db"
	"gorm.io/gorm"
)

const invoiceColumns = `id, payment_id, booking_id, number, amount, currency, file_url, issued_at, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByPayment(ctx context.Context, db *gorm.DB, paymentID string) (*domain.Invoice, error) {
	var item domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE payment_id = ? LIMIT 1`,
		paymentID,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find invoice by payment", err)
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var item domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ? LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find invoice", err)
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// NextSequence increments and returns the counter for scope.
// The row stays locked until the surrounding transaction ends.
func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, scope string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (scope, value)
		 VALUES (?, 1)
		 ON CONFLICT (scope) DO UPDATE SET value = invoice_sequences.value + 1
		 RETURNING value`,
		scope,
	).Scan(&value).Error
	if err != nil {
		return 0, dbutil.WrapIO("next invoice sequence", err)
	}
	return value, nil
}

// Insert reports false when the payment or the number already has an invoice.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice domain.Invoice) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (id, payment_id, booking_id, number, amount, currency, issued_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		invoice.ID,
		invoice.PaymentID,
		invoice.BookingID,
		invoice.Number,
		invoice.Amount,
		invoice.Currency,
		invoice.IssuedAt,
		invoice.CreatedAt,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("insert invoice", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SetFileURL(ctx context.Context, db *gorm.DB, id snowflake.ID, fileURL string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices SET file_url = ? WHERE id = ? AND file_url IS NULL`,
		fileURL,
		id,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("set invoice file url", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListUnrendered(ctx context.Context, db *gorm.DB, limit int) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE file_url IS NULL
		 ORDER BY issued_at ASC, id ASC
		 LIMIT ?`,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, dbutil.WrapIO("list unrendered invoices", err)
	}
	return items, nil
}
