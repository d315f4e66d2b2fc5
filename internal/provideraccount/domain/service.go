package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account VenueProviderAccount) error
	Find(ctx context.Context, db *gorm.DB, venueID, provider string) (*VenueProviderAccount, error)
	ListByVenue(ctx context.Context, db *gorm.DB, venueID string) ([]VenueProviderAccount, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, venueID, provider string, status AccountStatus, now time.Time) (bool, error)
	UpdateKycStatus(ctx context.Context, db *gorm.DB, venueID, provider string, kyc KycStatus, now time.Time) (bool, error)
}

type Service interface {
	Bind(ctx context.Context, req BindRequest) (*VenueProviderAccount, error)
	Resolve(ctx context.Context, venueID, provider string) (*VenueProviderAccount, error)
	ResolveTx(ctx context.Context, tx *gorm.DB, venueID, provider string) (*VenueProviderAccount, error)
	SetStatus(ctx context.Context, venueID, provider string, status AccountStatus) (*VenueProviderAccount, error)
	SetKycStatus(ctx context.Context, venueID, provider string, kyc KycStatus) (*VenueProviderAccount, error)
	List(ctx context.Context, venueID string) ([]VenueProviderAccount, error)
}

type BindRequest struct {
	VenueID   string        `json:"venue_id"`
	Provider  string        `json:"provider"`
	AccountID string        `json:"account_id"`
	Status    AccountStatus `json:"status,omitempty"`
	KycStatus KycStatus     `json:"kyc_status,omitempty"`
}

var (
	ErrDuplicateAccountBinding = errors.New("duplicate_account_binding")
	ErrNotFound                = errors.New("provider_account_not_found")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidKycStatus        = errors.New("invalid_kyc_status")
	ErrInvalidVenue            = errors.New("invalid_venue")
	ErrInvalidProvider         = errors.New("invalid_provider")
	ErrInvalidAccountID        = errors.New("invalid_account_id")
)
