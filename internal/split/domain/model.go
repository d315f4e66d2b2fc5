package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type DestType string

const (
	DestTypeVenue    DestType = "VENUE"
	DestTypePlatform DestType = "PLATFORM"
)

type SplitStatus string

const (
	SplitStatusPending     SplitStatus = "PENDING"
	SplitStatusTransferred SplitStatus = "TRANSFERRED"
	SplitStatusFailed      SplitStatus = "FAILED"
)

// PaymentSplit is one destination's share of a captured payment.
type PaymentSplit struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentID          string       `json:"payment_id"`
	DestType           DestType     `json:"dest_type"`
	DestAccountID      string       `json:"dest_account_id"`
	ProviderTransferID *string      `json:"provider_transfer_id,omitempty"`
	Amount             int64        `json:"amount"`
	FeeAmount          int64        `json:"fee_amount"`
	Currency           string       `json:"currency"`
	Status             SplitStatus  `json:"status"`
	FailureReason      *string      `json:"failure_reason,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`

	// Owning payment routing, populated by joined reads only.
	VenueID  string `json:"venue_id,omitempty" gorm:"->"`
	Provider string `json:"provider,omitempty" gorm:"->"`
}

func (PaymentSplit) TableName() string { return "payment_splits" }

// CanTransition reports whether a payout callback may move a split from one status to another.
func CanTransition(from, to SplitStatus) bool {
	switch from {
	case SplitStatusPending:
		return to == SplitStatusTransferred || to == SplitStatusFailed
	case SplitStatusFailed:
		return to == SplitStatusTransferred || to == SplitStatusFailed
	default:
		return false
	}
}
