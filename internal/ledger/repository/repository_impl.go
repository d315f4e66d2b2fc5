package repository

import (
	"context"

	ledgerdomain "github.com/picklepickle/picklepay/internal/ledger/domain"
	dbutil "github.com/picklepickle/picklepay/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) EnsureAccount(ctx context.Context, db *gorm.DB, account ledgerdomain.LedgerAccount) (ledgerdomain.LedgerAccount, error) {
	if err := db.WithContext(ctx).Exec(
		`INSERT INTO ledger_accounts (id, code, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		account.ID,
		account.Code,
		account.Name,
		account.CreatedAt,
	).Error; err != nil {
		return ledgerdomain.LedgerAccount{}, dbutil.WrapIO("ensure ledger account", err)
	}

	var stored ledgerdomain.LedgerAccount
	if err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at FROM ledger_accounts WHERE code = ?`,
		account.Code,
	).Scan(&stored).Error; err != nil {
		return ledgerdomain.LedgerAccount{}, dbutil.WrapIO("load ledger account", err)
	}
	if stored.ID == 0 {
		return ledgerdomain.LedgerAccount{}, ledgerdomain.ErrInvalidAccount
	}
	return stored, nil
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry ledgerdomain.LedgerEntry) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, source_type, source_id, currency, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_type, source_id) DO NOTHING`,
		entry.ID,
		entry.SourceType,
		entry.SourceID,
		entry.Currency,
		entry.OccurredAt,
		entry.CreatedAt,
	)
	if result.Error != nil {
		return false, dbutil.WrapIO("insert ledger entry", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line ledgerdomain.LedgerEntryLine) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entry_lines (id, ledger_entry_id, account_id, direction, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.LedgerEntryID,
		line.AccountID,
		line.Direction,
		line.Amount,
		line.CreatedAt,
	).Error
	return dbutil.WrapIO("insert ledger line", err)
}

func (r *repo) FindEntry(ctx context.Context, db *gorm.DB, sourceType ledgerdomain.LedgerSourceType, sourceID string) (*ledgerdomain.LedgerEntry, error) {
	var entry ledgerdomain.LedgerEntry
	if err := db.WithContext(ctx).Raw(
		`SELECT id, source_type, source_id, currency, occurred_at, created_at
		FROM ledger_entries
		WHERE source_type = ? AND source_id = ?`,
		sourceType,
		sourceID,
	).Scan(&entry).Error; err != nil {
		return nil, dbutil.WrapIO("find ledger entry", err)
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, entryID int64) ([]ledgerdomain.LedgerEntryLine, error) {
	var lines []ledgerdomain.LedgerEntryLine
	if err := db.WithContext(ctx).Raw(
		`SELECT l.id, l.ledger_entry_id, l.account_id, a.code AS account_code,
			l.direction, l.amount, l.created_at
		FROM ledger_entry_lines l
		JOIN ledger_accounts a ON a.id = l.account_id
		WHERE l.ledger_entry_id = ?
		ORDER BY l.id`,
		entryID,
	).Scan(&lines).Error; err != nil {
		return nil, dbutil.WrapIO("list ledger lines", err)
	}
	return lines, nil
}

func (r *repo) AccountBalance(ctx context.Context, db *gorm.DB, code ledgerdomain.LedgerAccountCode, currency string) (int64, error) {
	var balance int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE WHEN l.direction = 'debit' THEN l.amount ELSE -l.amount END), 0)
		FROM ledger_entry_lines l
		JOIN ledger_accounts a ON a.id = l.account_id
		JOIN ledger_entries e ON e.id = l.ledger_entry_id
		WHERE a.code = ? AND e.currency = ?`,
		code,
		currency,
	).Scan(&balance).Error; err != nil {
		return 0, dbutil.WrapIO("ledger balance", err)
	}
	return balance, nil
}
