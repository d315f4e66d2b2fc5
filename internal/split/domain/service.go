package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, split PaymentSplit) (bool, error)
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentSplit, error)
	ListByPayment(ctx context.Context, db *gorm.DB, paymentID string) ([]PaymentSplit, error)
	ListTransferable(ctx context.Context, db *gorm.DB, limit int) ([]PaymentSplit, error)
	MarkTransferred(ctx context.Context, db *gorm.DB, id snowflake.ID, transferID string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error)
}

type Service interface {
	ComputeSplits(ctx context.Context, req SplitRequest) ([]PaymentSplit, error)
	ListByPayment(ctx context.Context, paymentID string) ([]PaymentSplit, error)
	ListTransferable(ctx context.Context, limit int) ([]PaymentSplit, error)
	RecordTransfer(ctx context.Context, splitID snowflake.ID, providerTransferID string) (*PaymentSplit, error)
	RecordTransferFailure(ctx context.Context, splitID snowflake.ID, reason string) (*PaymentSplit, error)
	// ReverseForRefund posts the compensating ledger entry for a refunded payment.
	// Split rows are left untouched. It reports false when nothing was posted.
	ReverseForRefund(ctx context.Context, paymentID string, refundedAt time.Time) (bool, error)
}

type SplitRequest struct {
	PaymentID      string
	CapturedAmount int64
	Currency       string
	VenueID        string
	Provider       string
	CapturedAt     time.Time
}

var (
	ErrNoActiveDestinationAccount = errors.New("no_active_destination_account")
	ErrKycNotVerified             = errors.New("kyc_not_verified")
	ErrSplitNotFound              = errors.New("split_not_found")
	ErrInvalidTransition          = errors.New("invalid_split_transition")
	ErrInvalidAmount              = errors.New("invalid_amount")
	ErrInvalidFeePolicy           = errors.New("invalid_fee_policy")
	ErrAmountOverflow             = errors.New("amount_overflow")
	ErrInvalidPayment             = errors.New("invalid_payment")
	ErrInvalidCurrency            = errors.New("invalid_currency")
	ErrInvalidTransferID          = errors.New("invalid_transfer_id")
)
