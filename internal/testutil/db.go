// Package testutil opens throwaway SQLite databases carrying the PicklePay schema.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		venue_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		provider_order_id TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		last_event_id BIGINT NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 0,
		captured_at DATETIME,
		split_at DATETIME,
		invoiced_at DATETIME,
		failed_at DATETIME,
		refunded_at DATETIME,
		poll_requested_at DATETIME,
		last_error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_payments_provider_order ON payments(provider, provider_order_id)`,
	`CREATE TABLE payment_events (
		id BIGINT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		event_type TEXT NOT NULL,
		source TEXT NOT NULL,
		provider_event_id TEXT,
		payload TEXT NOT NULL,
		received_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_payment_events_provider_event ON payment_events(provider, provider_event_id) WHERE provider_event_id IS NOT NULL`,
	`CREATE TABLE payment_anomalies (
		id BIGINT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		event_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		resolved_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_payment_anomalies_event ON payment_anomalies(payment_id, event_id, kind)`,
	`CREATE TABLE venue_provider_accounts (
		id BIGINT PRIMARY KEY,
		venue_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		account_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		kyc_status TEXT NOT NULL DEFAULT 'PENDING',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_venue_provider_accounts ON venue_provider_accounts(venue_id, provider)`,
	`CREATE TABLE payment_splits (
		id BIGINT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		dest_type TEXT NOT NULL,
		dest_account_id TEXT NOT NULL,
		provider_transfer_id TEXT,
		amount BIGINT NOT NULL,
		fee_amount BIGINT NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		failure_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_payment_splits_dest ON payment_splits(payment_id, dest_type)`,
	`CREATE TABLE invoice_sequences (
		scope TEXT PRIMARY KEY,
		value BIGINT NOT NULL
	)`,
	`CREATE TABLE invoices (
		id BIGINT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		booking_id TEXT NOT NULL,
		number TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		file_url TEXT,
		issued_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_invoices_payment ON invoices(payment_id)`,
	`CREATE UNIQUE INDEX ux_invoices_number ON invoices(number)`,
	`CREATE TABLE ledger_accounts (
		id BIGINT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_ledger_accounts_code ON ledger_accounts(code)`,
	`CREATE TABLE ledger_entries (
		id BIGINT PRIMARY KEY,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		occurred_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_ledger_entries_source ON ledger_entries(source_type, source_id)`,
	`CREATE TABLE ledger_entry_lines (
		id BIGINT PRIMARY KEY,
		ledger_entry_id BIGINT NOT NULL,
		account_id BIGINT NOT NULL,
		direction TEXT NOT NULL,
		amount BIGINT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id BIGINT PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT,
		ip_address TEXT,
		user_agent TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// OpenDB returns an isolated in-memory database with every table created.
// A single connection keeps concurrent callers serialized like row locks would.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

// Node returns a snowflake node for id generation in tests.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

// Count runs a COUNT(1) query and fails the test on error.
func Count(t testing.TB, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}
