package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LedgerEntryDirection represents debit or credit postings.
type LedgerEntryDirection string

const (
	LedgerEntryDirectionDebit  LedgerEntryDirection = "debit"
	LedgerEntryDirectionCredit LedgerEntryDirection = "credit"
)

type LedgerSourceType string

const (
	SourceTypeSplit  LedgerSourceType = "split"  // captured payment divided between venue and platform
	SourceTypeRefund LedgerSourceType = "refund" // compensating reversal of a split entry
)

type LedgerAccountCode string

const (
	// Asset: money held by the gateway on our behalf.
	AccountCodeProviderClearing LedgerAccountCode = "provider_clearing"
	// Liability: owed to venues until the payout transfer lands.
	AccountCodeVenuePayable LedgerAccountCode = "venue_payable"
	// Revenue: platform commission.
	AccountCodePlatformRevenue LedgerAccountCode = "platform_revenue"
)

var accountNames = map[LedgerAccountCode]string{
	AccountCodeProviderClearing: "Provider clearing",
	AccountCodeVenuePayable:     "Venue payable",
	AccountCodePlatformRevenue:  "Platform revenue",
}

// AccountName returns the display name for a known account code.
func AccountName(code LedgerAccountCode) (string, bool) {
	name, ok := accountNames[code]
	return name, ok
}

// LedgerAccount defines a chart-of-accounts entry.
type LedgerAccount struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	Code      LedgerAccountCode `gorm:"type:text;not null"`
	Name      string            `gorm:"type:text;not null"`
	CreatedAt time.Time         `gorm:"not null"`
}

func (LedgerAccount) TableName() string { return "ledger_accounts" }

// LedgerEntry is the immutable header for a financial event. At most one
// entry exists per (source_type, source_id).
type LedgerEntry struct {
	ID         snowflake.ID     `json:"id" gorm:"primaryKey"`
	SourceType LedgerSourceType `json:"source_type"`
	SourceID   string           `json:"source_id"`
	Currency   string           `json:"currency"`
	OccurredAt time.Time        `json:"occurred_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is a double-entry posting line.
type LedgerEntryLine struct {
	ID            snowflake.ID         `json:"id" gorm:"primaryKey"`
	LedgerEntryID snowflake.ID         `json:"ledger_entry_id"`
	AccountID     snowflake.ID         `json:"account_id"`
	AccountCode   LedgerAccountCode    `json:"account_code" gorm:"->"`
	Direction     LedgerEntryDirection `json:"direction"`
	Amount        int64                `json:"amount"`
	CreatedAt     time.Time            `json:"created_at"`
}

func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }

// PostingLine is one requested line before account ids are resolved.
type PostingLine struct {
	AccountCode LedgerAccountCode
	Direction   LedgerEntryDirection
	Amount      int64
}

type CreateEntryRequest struct {
	SourceType LedgerSourceType
	SourceID   string
	Currency   string
	OccurredAt time.Time
	Lines      []PostingLine
}
