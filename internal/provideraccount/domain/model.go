package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

type KycStatus string

const (
	KycStatusPending  KycStatus = "PENDING"
	KycStatusVerified KycStatus = "VERIFIED"
	KycStatusRejected KycStatus = "REJECTED"
)

// VenueProviderAccount binds a venue to its payout destination at one provider.
type VenueProviderAccount struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	VenueID   string        `json:"venue_id"`
	Provider  string        `json:"provider"`
	AccountID string        `json:"account_id"`
	Status    AccountStatus `json:"status"`
	KycStatus KycStatus     `json:"kyc_status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (VenueProviderAccount) TableName() string { return "venue_provider_accounts" }

// CanReceiveSplits reports whether new splits may target the account.
func (a VenueProviderAccount) CanReceiveSplits() bool {
	return a.Status == AccountStatusActive
}

// CanReceiveTransfers reports whether payouts may execute against the account.
func (a VenueProviderAccount) CanReceiveTransfers() bool {
	return a.KycStatus == KycStatusVerified
}

func ParseAccountStatus(value string) (AccountStatus, bool) {
	switch AccountStatus(value) {
	case AccountStatusActive, AccountStatusInactive:
		return AccountStatus(value), true
	default:
		return "", false
	}
}

func ParseKycStatus(value string) (KycStatus, bool) {
	switch KycStatus(value) {
	case KycStatusPending, KycStatusVerified, KycStatusRejected:
		return KycStatus(value), true
	default:
		return "", false
	}
}
