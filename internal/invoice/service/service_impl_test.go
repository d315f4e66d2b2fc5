package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/invoice/domain"
	"github.com/picklepickle/picklepay/internal/invoice/repository"
	"github.com/picklepickle/picklepay/internal/invoice/service"
	"github.com/picklepickle/picklepay/internal/invoice/storage"
	"github.com/picklepickle/picklepay/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) Render(ctx context.Context, invoice domain.Invoice) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF " + invoice.Number), nil
}

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	fs       afero.Fs
	renderer *stubRenderer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	fs := afero.NewMemMapFs()
	renderer := &stubRenderer{}
	svc, err := service.NewService(service.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    testutil.Node(t),
		Repo:     repository.Provide(),
		Cfg:      config.Config{Invoice: config.InvoiceConfig{NumberTemplate: "PP-{YYYY}{MM}-{SEQ6}"}},
		Renderer: renderer,
		Store:    storage.NewLocalStore(fs, "/data", "https://files.test"),
		Clock:    clock.NewFakeClock(testNow),
	})
	require.NoError(t, err)
	return fixture{db: db, svc: svc, fs: fs, renderer: renderer}
}

func issueRequest(paymentID string) domain.IssueRequest {
	return domain.IssueRequest{
		PaymentID: paymentID,
		BookingID: "booking_" + paymentID,
		Amount:    200_000,
		Currency:  "vnd",
	}
}

func TestIssueInvoiceAssignsSequentialNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	require.NoError(t, err)
	assert.Equal(t, "PP-202605-000001", first.Number)
	assert.Equal(t, "VND", first.Currency)
	assert.True(t, first.IssuedAt.Equal(testNow))
	assert.Nil(t, first.FileURL)

	second, err := f.svc.IssueInvoice(ctx, issueRequest("pay_2"))
	require.NoError(t, err)
	assert.Equal(t, "PP-202605-000002", second.Number)
}

func TestIssueInvoiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	require.NoError(t, err)
	again, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Number, again.Number)
	assert.Equal(t, int64(1), testutil.Count(t, f.db, `SELECT COUNT(1) FROM invoices`))
}

func TestIssueInvoiceConcurrentCallsCreateOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const workers = 8
	numbers := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			invoice, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
			if !assert.NoError(t, err) {
				return
			}
			numbers[i] = invoice.Number
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), testutil.Count(t, f.db, `SELECT COUNT(1) FROM invoices WHERE payment_id = ?`, "pay_1"))
	for _, number := range numbers {
		assert.Equal(t, numbers[0], number)
	}
}

func TestIssueInvoiceRetriesTakenNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.db.Exec(
		`INSERT INTO invoices (id, payment_id, booking_id, number, amount, currency, issued_at, created_at)
		 VALUES (1, 'legacy', 'b', 'PP-202605-000001', 1, 'VND', ?, ?)`, testNow, testNow,
	).Error)

	invoice, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	require.NoError(t, err)
	assert.Equal(t, "PP-202605-000002", invoice.Number)
	assert.Equal(t, int64(2), testutil.Count(t, f.db, `SELECT value FROM invoice_sequences WHERE scope = 'invoice'`))
}

func TestIssueInvoiceGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, f.db.Exec(
			`INSERT INTO invoices (id, payment_id, booking_id, number, amount, currency, issued_at, created_at)
			 VALUES (?, ?, 'b', ?, 1, 'VND', ?, ?)`,
			i, fmt.Sprintf("legacy_%d", i), fmt.Sprintf("PP-202605-%06d", i), testNow, testNow,
		).Error)
	}

	_, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	assert.ErrorIs(t, err, domain.ErrInvoiceNumberExhausted)

	invoice, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	require.NoError(t, err)
	assert.Equal(t, "PP-202605-000006", invoice.Number)
}

func TestIssueInvoiceValidatesRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req := issueRequest("pay_1")
	req.BookingID = ""
	_, err := f.svc.IssueInvoice(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidBooking)

	req = issueRequest("pay_1")
	req.Amount = 0
	_, err = f.svc.IssueInvoice(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestNewServiceRejectsTemplateWithoutSequence(t *testing.T) {
	_, err := service.NewService(service.Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Repo:  repository.Provide(),
		Cfg:   config.Config{Invoice: config.InvoiceConfig{NumberTemplate: "PP-{YYYY}"}},
	})
	assert.Error(t, err)
}

func TestRenderDocumentStoresOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	invoice, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	require.NoError(t, err)

	pending, err := f.svc.ListUnrendered(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	rendered, err := f.svc.RenderDocument(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, rendered.FileURL)
	assert.Regexp(t, `^https://files\.test/invoices/2026/05/pp-202605-000001-[0-9a-z]{26}\.pdf$`, *rendered.FileURL)

	again, err := f.svc.RenderDocument(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, *rendered.FileURL, *again.FileURL)
	assert.Equal(t, 1, f.renderer.calls)

	pending, err = f.svc.ListUnrendered(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	stored, err := f.svc.FindByPayment(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, *rendered.FileURL, *stored.FileURL)
	assert.Equal(t, invoice.Number, stored.Number)
}

func TestRenderDocumentFailureLeavesInvoicePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.renderer.err = errors.New("font missing")

	invoice, err := f.svc.IssueInvoice(ctx, issueRequest("pay_1"))
	require.NoError(t, err)

	_, err = f.svc.RenderDocument(ctx, invoice.ID)
	assert.ErrorContains(t, err, "font missing")

	pending, err := f.svc.ListUnrendered(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.svc.FindByPayment(ctx, "pay_missing")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}
