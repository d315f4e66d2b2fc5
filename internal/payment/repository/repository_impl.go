package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/picklepickle/picklepay/internal/payment/domain"
	dbutil "github.com/picklepickle/picklepay/pkg/db"
	"gorm.io/gorm"
)

const paymentColumns = `id, booking_id, venue_id, provider, provider_order_id, amount, currency, status,
	last_event_id, version, captured_at, split_at, invoiced_at, failed_at, refunded_at,
	poll_requested_at, last_error, created_at, updated_at`

const eventColumns = `id, payment_id, provider, event_type, source, provider_event_id, payload, received_at`

const anomalyColumns = `id, payment_id, event_id, kind, detail, created_at, resolved_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment domain.Payment) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, booking_id, venue_id, provider, provider_order_id, amount, currency,
			status, last_event_id, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
		 ON CONFLICT DO NOTHING`,
		payment.ID,
		payment.BookingID,
		payment.VenueID,
		payment.Provider,
		payment.ProviderOrderID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("insert payment", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, id string, forUpdate bool) (*domain.Payment, error) {
	lock := ""
	if forUpdate {
		lock = dbutil.ForUpdate(db)
	}
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE id = ?
		 LIMIT 1`+lock,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find payment", err)
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, provider, orderID string) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE provider = ? AND provider_order_id = ?
		 LIMIT 1`,
		provider,
		orderID,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find payment by order", err)
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

// UpdateFold writes a re-derived status. First-seen timestamps are kept.
// It reports false when the row moved past the expected version.
func (r *repo) UpdateFold(ctx context.Context, db *gorm.DB, update domain.FoldUpdate) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?,
			last_event_id = ?,
			captured_at = COALESCE(captured_at, ?),
			failed_at = COALESCE(failed_at, ?),
			refunded_at = COALESCE(refunded_at, ?),
			version = version + 1,
			updated_at = ?
		 WHERE id = ? AND version = ?`,
		update.Status,
		update.LastEventID,
		update.CapturedAt,
		update.FailedAt,
		update.RefundedAt,
		update.UpdatedAt,
		update.ID,
		update.ExpectedVersion,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("update payment fold", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AdvanceStatus records a milestone reached by a side effect.
func (r *repo) AdvanceStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.Status, now time.Time) (bool, error) {
	milestone := ""
	switch to {
	case domain.StatusSplitDone:
		milestone = "split_at = ?, "
	case domain.StatusInvoiced:
		milestone = "invoiced_at = ?, "
	}
	args := []any{to}
	if milestone != "" {
		args = append(args, now)
	}
	args = append(args, now, id, from)

	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, `+milestone+`last_error = NULL, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ?`,
		args...,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("advance payment status", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SetLastError(ctx context.Context, db *gorm.DB, id string, message *string, now time.Time) error {
	err := db.WithContext(ctx).Exec(
		`UPDATE payments SET last_error = ?, updated_at = ? WHERE id = ?`,
		message,
		now,
		id,
	).Error
	return dbutil.WrapIO("set payment last error", err)
}

func (r *repo) RequestPoll(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET poll_requested_at = COALESCE(poll_requested_at, ?), updated_at = ?
		 WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		domain.StatusPending,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("request payment poll", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListPollCandidates returns pending payments that were flagged for polling
// or have waited past the webhook grace period, oldest first.
func (r *repo) ListPollCandidates(ctx context.Context, db *gorm.DB, createdBefore, createdAfter time.Time, limit int) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE status = ?
		   AND created_at >= ?
		   AND (poll_requested_at IS NOT NULL OR created_at <= ?)
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		domain.StatusPending,
		createdAfter,
		createdBefore,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, dbutil.WrapIO("list poll candidates", err)
	}
	return items, nil
}

// ListStalled returns payments whose side effects have not caught up with their status.
func (r *repo) ListStalled(ctx context.Context, db *gorm.DB, updatedBefore time.Time, limit int) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE (status IN (?, ?) AND updated_at <= ?)
		    OR (status = ? AND last_error IS NOT NULL)
		 ORDER BY updated_at ASC, id ASC
		 LIMIT ?`,
		domain.StatusCaptured,
		domain.StatusSplitDone,
		updatedBefore,
		domain.StatusRefunded,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, dbutil.WrapIO("list stalled payments", err)
	}
	return items, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event domain.EventRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		event.ID,
		event.PaymentID,
		event.Provider,
		event.EventType,
		event.Source,
		event.ProviderEventID,
		event.Payload,
		event.ReceivedAt,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("insert payment event", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindEventByProviderID(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+`
		 FROM payment_events
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find payment event", err)
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, paymentID string) ([]domain.EventRecord, error) {
	var items []domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+`
		 FROM payment_events
		 WHERE payment_id = ?
		 ORDER BY received_at ASC, id ASC`,
		paymentID,
	).Scan(&items).Error
	if err != nil {
		return nil, dbutil.WrapIO("list payment events", err)
	}
	return items, nil
}

func (r *repo) InsertAnomaly(ctx context.Context, db *gorm.DB, anomaly domain.Anomaly) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payment_anomalies (id, payment_id, event_id, kind, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		anomaly.ID,
		anomaly.PaymentID,
		anomaly.EventID,
		anomaly.Kind,
		anomaly.Detail,
		anomaly.CreatedAt,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("insert payment anomaly", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindAnomaly(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Anomaly, error) {
	var item domain.Anomaly
	err := db.WithContext(ctx).Raw(
		`SELECT `+anomalyColumns+` FROM payment_anomalies WHERE id = ? LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find payment anomaly", err)
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListAnomalies(ctx context.Context, db *gorm.DB, filter domain.AnomalyFilter) ([]domain.Anomaly, error) {
	var (
		where []string
		args  []any
	)
	if filter.PaymentID != "" {
		where = append(where, "payment_id = ?")
		args = append(args, filter.PaymentID)
	}
	if !filter.IncludeResolved {
		where = append(where, "resolved_at IS NULL")
	}
	query := `SELECT ` + anomalyColumns + ` FROM payment_anomalies`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var items []domain.Anomaly
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, dbutil.WrapIO("list payment anomalies", err)
	}
	return items, nil
}

func (r *repo) ResolveAnomaly(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_anomalies SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		now,
		id,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("resolve payment anomaly", result.Error)
	}
	return result.RowsAffected > 0, nil
}
