package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/picklepickle/picklepay/internal/clock"
	ledgerdomain "github.com/picklepickle/picklepay/internal/ledger/domain"
	ledgerrepo "github.com/picklepickle/picklepay/internal/ledger/repository"
	ledgerservice "github.com/picklepickle/picklepay/internal/ledger/service"
	"github.com/picklepickle/picklepay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLedger(t *testing.T) (ledgerdomain.Service, func(string, ...any) int64) {
	t.Helper()
	db := testutil.OpenDB(t)
	svc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Repo:  ledgerrepo.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, func(q string, args ...any) int64 { return testutil.Count(t, db, q, args...) }
}

func splitEntry(sourceID string) ledgerdomain.CreateEntryRequest {
	return ledgerdomain.CreateEntryRequest{
		SourceType: ledgerdomain.SourceTypeSplit,
		SourceID:   sourceID,
		Currency:   "vnd",
		OccurredAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Lines: []ledgerdomain.PostingLine{
			{AccountCode: ledgerdomain.AccountCodeProviderClearing, Direction: "DEBIT", Amount: 200_000},
			{AccountCode: ledgerdomain.AccountCodeVenuePayable, Direction: "credit", Amount: 190_000},
			{AccountCode: ledgerdomain.AccountCodePlatformRevenue, Direction: "credit", Amount: 10_000},
		},
	}
}

func TestCreateEntryIsIdempotentPerSource(t *testing.T) {
	ctx := context.Background()
	svc, count := newLedger(t)

	created, err := svc.CreateEntry(ctx, splitEntry("pay_1"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CreateEntry(ctx, splitEntry("pay_1"))
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, int64(1), count(`SELECT COUNT(1) FROM ledger_entries`))
	assert.Equal(t, int64(3), count(`SELECT COUNT(1) FROM ledger_entry_lines`))
	assert.Equal(t, int64(3), count(`SELECT COUNT(1) FROM ledger_accounts`))

	entry, lines, err := svc.FindEntry(ctx, ledgerdomain.SourceTypeSplit, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "VND", entry.Currency)
	require.Len(t, lines, 3)
	assert.Equal(t, ledgerdomain.AccountCodeProviderClearing, lines[0].AccountCode)
}

func TestRefundReversalNetsToZero(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedger(t)

	_, err := svc.CreateEntry(ctx, splitEntry("pay_2"))
	require.NoError(t, err)

	_, lines, err := svc.FindEntry(ctx, ledgerdomain.SourceTypeSplit, "pay_2")
	require.NoError(t, err)

	created, err := svc.CreateEntry(ctx, ledgerdomain.CreateEntryRequest{
		SourceType: ledgerdomain.SourceTypeRefund,
		SourceID:   "pay_2",
		Currency:   "VND",
		OccurredAt: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Lines:      ledgerdomain.Reverse(lines),
	})
	require.NoError(t, err)
	assert.True(t, created)

	for _, code := range []ledgerdomain.LedgerAccountCode{
		ledgerdomain.AccountCodeProviderClearing,
		ledgerdomain.AccountCodeVenuePayable,
		ledgerdomain.AccountCodePlatformRevenue,
	} {
		balance, err := svc.AccountBalance(ctx, code, "VND")
		require.NoError(t, err)
		assert.Zero(t, balance, code)
	}
}

func TestCreateEntryRejectsUnbalanced(t *testing.T) {
	svc, count := newLedger(t)

	req := splitEntry("pay_3")
	req.Lines[1].Amount = 1
	_, err := svc.CreateEntry(context.Background(), req)
	assert.ErrorIs(t, err, ledgerdomain.ErrUnbalancedEntry)
	assert.Zero(t, count(`SELECT COUNT(1) FROM ledger_entries`))

	_, _, err = svc.FindEntry(context.Background(), ledgerdomain.SourceTypeSplit, "pay_3")
	assert.ErrorIs(t, err, ledgerdomain.ErrEntryNotFound)
}
