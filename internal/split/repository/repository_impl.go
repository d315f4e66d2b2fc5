package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/picklepickle/picklepay/internal/split/domain"
	dbutil "github.com/picklepickle/picklepay/pkg/db"
	"gorm.io/gorm"
)

const splitColumns = `s.id, s.payment_id, s.dest_type, s.dest_account_id, s.provider_transfer_id,
	s.amount, s.fee_amount, s.currency, s.status, s.failure_reason, s.created_at, s.updated_at,
	p.venue_id, p.provider`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, split domain.PaymentSplit) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payment_splits (id, payment_id, dest_type, dest_account_id, amount, fee_amount, currency, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (payment_id, dest_type) DO NOTHING`,
		split.ID,
		split.PaymentID,
		split.DestType,
		split.DestAccountID,
		split.Amount,
		split.FeeAmount,
		split.Currency,
		split.Status,
		split.CreatedAt,
		split.UpdatedAt,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("insert payment split", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentSplit, error) {
	var item domain.PaymentSplit
	err := db.WithContext(ctx).Raw(
		`SELECT `+splitColumns+`
		 FROM payment_splits s
		 JOIN payments p ON p.id = s.payment_id
		 WHERE s.id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find payment split", err)
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByPayment(ctx context.Context, db *gorm.DB, paymentID string) ([]domain.PaymentSplit, error) {
	var items []domain.PaymentSplit
	err := db.WithContext(ctx).Raw(
		`SELECT `+splitColumns+`
		 FROM payment_splits s
		 JOIN payments p ON p.id = s.payment_id
		 WHERE s.payment_id = ?
		 ORDER BY s.dest_type DESC`,
		paymentID,
	).Scan(&items).Error
	if err != nil {
		return nil, dbutil.WrapIO("list payment splits", err)
	}
	return items, nil
}

// ListTransferable returns open splits whose payout may execute now.
// Refunded payments are excluded; venue shares wait for KYC verification.
func (r *repo) ListTransferable(ctx context.Context, db *gorm.DB, limit int) ([]domain.PaymentSplit, error) {
	var items []domain.PaymentSplit
	err := db.WithContext(ctx).Raw(
		`SELECT `+splitColumns+`
		 FROM payment_splits s
		 JOIN payments p ON p.id = s.payment_id
		 LEFT JOIN venue_provider_accounts a ON a.venue_id = p.venue_id AND a.provider = p.provider
		 WHERE s.status IN (?, ?)
		   AND p.status <> 'REFUNDED'
		   AND (s.dest_type = ? OR a.kyc_status = 'VERIFIED')
		 ORDER BY s.created_at ASC, s.id ASC
		 LIMIT ?`,
		domain.SplitStatusPending,
		domain.SplitStatusFailed,
		domain.DestTypePlatform,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, dbutil.WrapIO("list transferable splits", err)
	}
	return items, nil
}

func (r *repo) MarkTransferred(ctx context.Context, db *gorm.DB, id snowflake.ID, transferID string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_splits
		 SET status = ?, provider_transfer_id = ?, failure_reason = NULL, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		domain.SplitStatusTransferred,
		transferID,
		now,
		id,
		domain.SplitStatusPending,
		domain.SplitStatusFailed,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("mark split transferred", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_splits
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		domain.SplitStatusFailed,
		reason,
		now,
		id,
		domain.SplitStatusPending,
		domain.SplitStatusFailed,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("mark split failed", result.Error)
	}
	return result.RowsAffected > 0, nil
}
