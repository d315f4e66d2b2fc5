package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	EnsureAccount(ctx context.Context, db *gorm.DB, account LedgerAccount) (LedgerAccount, error)
	InsertEntry(ctx context.Context, db *gorm.DB, entry LedgerEntry) (bool, error)
	InsertLine(ctx context.Context, db *gorm.DB, line LedgerEntryLine) error
	FindEntry(ctx context.Context, db *gorm.DB, sourceType LedgerSourceType, sourceID string) (*LedgerEntry, error)
	ListLines(ctx context.Context, db *gorm.DB, entryID int64) ([]LedgerEntryLine, error)
	AccountBalance(ctx context.Context, db *gorm.DB, code LedgerAccountCode, currency string) (int64, error)
}

type Service interface {
	// CreateEntry posts a balanced entry in its own transaction. created is
	// false when an entry for the same source already exists.
	CreateEntry(ctx context.Context, req CreateEntryRequest) (created bool, err error)
	// CreateEntryTx posts inside the caller's transaction.
	CreateEntryTx(ctx context.Context, tx *gorm.DB, req CreateEntryRequest) (created bool, err error)
	FindEntry(ctx context.Context, sourceType LedgerSourceType, sourceID string) (*LedgerEntry, []LedgerEntryLine, error)
	// AccountBalance returns debits minus credits for the account.
	AccountBalance(ctx context.Context, code LedgerAccountCode, currency string) (int64, error)
}

var (
	ErrInvalidSourceType    = errors.New("invalid_source_type")
	ErrInvalidSourceID      = errors.New("invalid_source_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidOccurredAt    = errors.New("invalid_occurred_at")
	ErrInvalidEntryLines    = errors.New("invalid_entry_lines")
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrInvalidLineDirection = errors.New("invalid_line_direction")
	ErrInvalidLineAmount    = errors.New("invalid_line_amount")
	ErrUnbalancedEntry      = errors.New("unbalanced_entry")
	ErrEntryNotFound        = errors.New("ledger_entry_not_found")
)
