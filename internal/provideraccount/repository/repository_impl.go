package repository

import (
	"context"
	"time"

	"github.com/picklepickle/picklepay/internal/provideraccount/domain"
	dbutil "github.com/picklepickle/picklepay/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account domain.VenueProviderAccount) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO venue_provider_accounts (id, venue_id, provider, account_id, status, kyc_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.VenueID,
		account.Provider,
		account.AccountID,
		account.Status,
		account.KycStatus,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
	if err != nil {
		if dbutil.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateAccountBinding
		}
		return dbutil.WrapIO("insert provider account", err)
	}
	return nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, venueID, provider string) (*domain.VenueProviderAccount, error) {
	var item domain.VenueProviderAccount
	err := db.WithContext(ctx).Raw(
		`SELECT id, venue_id, provider, account_id, status, kyc_status, created_at, updated_at
		 FROM venue_provider_accounts
		 WHERE venue_id = ? AND provider = ?
		 LIMIT 1`,
		venueID,
		provider,
	).Scan(&item).Error
	if err != nil {
		return nil, dbutil.WrapIO("find provider account", err)
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByVenue(ctx context.Context, db *gorm.DB, venueID string) ([]domain.VenueProviderAccount, error) {
	var items []domain.VenueProviderAccount
	err := db.WithContext(ctx).Raw(
		`SELECT id, venue_id, provider, account_id, status, kyc_status, created_at, updated_at
		 FROM venue_provider_accounts
		 WHERE venue_id = ?
		 ORDER BY provider`,
		venueID,
	).Scan(&items).Error
	if err != nil {
		return nil, dbutil.WrapIO("list provider accounts", err)
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, venueID, provider string, status domain.AccountStatus, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE venue_provider_accounts
		 SET status = ?, updated_at = ?
		 WHERE venue_id = ? AND provider = ?`,
		status,
		now,
		venueID,
		provider,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("update provider account status", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) UpdateKycStatus(ctx context.Context, db *gorm.DB, venueID, provider string, kyc domain.KycStatus, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE venue_provider_accounts
		 SET kyc_status = ?, updated_at = ?
		 WHERE venue_id = ? AND provider = ?`,
		kyc,
		now,
		venueID,
		provider,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("update provider account kyc", result.Error)
	}
	return result.RowsAffected > 0, nil
}
