package webhook_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	invoicerepo "github.com/picklepickle/picklepay/internal/invoice/repository"
	invoiceservice "github.com/picklepickle/picklepay/internal/invoice/service"
	ledgerrepo "github.com/picklepickle/picklepay/internal/ledger/repository"
	ledgerservice "github.com/picklepickle/picklepay/internal/ledger/service"
	"github.com/picklepickle/picklepay/internal/payment/adapters"
	"github.com/picklepickle/picklepay/internal/payment/adapters/gateway"
	"github.com/picklepickle/picklepay/internal/payment/adapters/momo"
	"github.com/picklepickle/picklepay/internal/payment/domain"
	"github.com/picklepickle/picklepay/internal/payment/mocks"
	"github.com/picklepickle/picklepay/internal/payment/repository"
	"github.com/picklepickle/picklepay/internal/payment/service"
	"github.com/picklepickle/picklepay/internal/payment/webhook"
	"github.com/picklepickle/picklepay/internal/paymentlock"
	accountdomain "github.com/picklepickle/picklepay/internal/provideraccount/domain"
	accountrepo "github.com/picklepickle/picklepay/internal/provideraccount/repository"
	accountservice "github.com/picklepickle/picklepay/internal/provideraccount/service"
	splitrepo "github.com/picklepickle/picklepay/internal/split/repository"
	splitservice "github.com/picklepickle/picklepay/internal/split/service"
	"github.com/picklepickle/picklepay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var momoConfig = config.MoMoConfig{
	PartnerCode: "MOMOPP01",
	AccessKey:   "F8BBA842ECF85",
	SecretKey:   "K951B6PE1waDMi640xX08PD3vg6EkVlz",
}

type fixture struct {
	db       *gorm.DB
	payments domain.Service
	webhooks domain.WebhookService
}

func newFixture(t *testing.T, source domain.AdapterSource) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fake := clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	accounts := accountservice.New(accountservice.Params{DB: db, Log: log, GenID: node, Repo: accountrepo.Provide(), Clock: fake})
	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node, Repo: ledgerrepo.Provide(), Clock: fake})
	splits := splitservice.NewService(splitservice.Params{
		DB: db, Log: log, GenID: node, Repo: splitrepo.Provide(), Accounts: accounts, LedgerSvc: ledger,
		Fees: config.NewStaticFeePolicyHolder(config.DefaultFeePolicy()), Clock: fake,
	})
	invoices, err := invoiceservice.NewService(invoiceservice.Params{
		DB: db, Log: log, GenID: node, Repo: invoicerepo.Provide(), Cfg: config.Config{}, Clock: fake,
	})
	require.NoError(t, err)
	payments := service.NewService(service.Params{
		DB: db, Log: log, GenID: node, Repo: repository.Provide(), Locker: paymentlock.NewLocalLocker(),
		Splits: splits, Invoices: invoices, Clock: fake,
	})

	_, err = accounts.Bind(context.Background(), accountdomain.BindRequest{
		VenueID: "venue_1", Provider: "momo", AccountID: "0909000111",
		Status: accountdomain.AccountStatusActive, KycStatus: accountdomain.KycStatusVerified,
	})
	require.NoError(t, err)
	_, err = payments.Open(context.Background(), domain.OpenRequest{
		BookingID: "booking-1", VenueID: "venue_1", Provider: "momo", ProviderOrderID: "BK-1001", Amount: 150_000, Currency: "VND",
	})
	require.NoError(t, err)

	if source == nil {
		source = adapters.NewRegistry(momo.New(momoConfig, nil))
	}
	return fixture{
		db:       db,
		payments: payments,
		webhooks: webhook.NewService(webhook.Params{Log: log, PaymentSvc: payments, Adapters: source}),
	}
}

func momoIPN(t *testing.T, secret, orderID string, amount, transID int64, resultCode int) []byte {
	t.Helper()
	fields := map[string]any{
		"partnerCode":  momoConfig.PartnerCode,
		"orderId":      orderID,
		"requestId":    "req-" + orderID,
		"amount":       amount,
		"orderInfo":    "Court booking",
		"orderType":    "momo_wallet",
		"transId":      transID,
		"resultCode":   resultCode,
		"message":      "ok",
		"payType":      "qr",
		"responseTime": int64(1777626000000),
		"extraData":    "",
	}
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		momoConfig.AccessKey, amount, "", "ok", orderID, "Court booking", "momo_wallet",
		momoConfig.PartnerCode, "qr", "req-"+orderID, int64(1777626000000), resultCode, transID,
	)
	fields["signature"] = gateway.SignSHA256(secret, raw)
	body, err := json.Marshal(fields)
	require.NoError(t, err)
	return body
}

func TestIngestCapturesAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	body := momoIPN(t, momoConfig.SecretKey, "BK-1001", 150_000, 4088878653, 0)

	ack, err := f.webhooks.IngestWebhook(ctx, "momo", domain.WebhookRequest{Body: body})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, ack.HTTPStatus)

	ack, err = f.webhooks.IngestWebhook(ctx, "MoMo", domain.WebhookRequest{Body: body})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, ack.HTTPStatus)

	payment, err := f.payments.FindByOrder(ctx, "momo", "BK-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvoiced, payment.Status)
	assert.Equal(t, int64(1), testutil.Count(t, f.db, `SELECT COUNT(1) FROM payment_events WHERE provider_event_id = ?`, "4088878653-0"))
}

func TestIngestRejectsForgedSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	body := momoIPN(t, "not-the-secret", "BK-1001", 150_000, 4088878653, 0)

	ack, err := f.webhooks.IngestWebhook(ctx, "momo", domain.WebhookRequest{Body: body})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Equal(t, http.StatusBadRequest, ack.HTTPStatus)
	assert.Zero(t, testutil.Count(t, f.db, `SELECT COUNT(1) FROM payment_events`))
}

func TestIngestUnknownOrderAndProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	body := momoIPN(t, momoConfig.SecretKey, "BK-404", 150_000, 4088878653, 0)
	_, err := f.webhooks.IngestWebhook(ctx, "momo", domain.WebhookRequest{Body: body})
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	ack, err := f.webhooks.IngestWebhook(ctx, "stripe", domain.WebhookRequest{Body: body})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	assert.Zero(t, ack.HTTPStatus)
}

func TestIngestPendingResultIsAcknowledgedWithoutEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	body := momoIPN(t, momoConfig.SecretKey, "BK-1001", 150_000, 0, 1000)

	ack, err := f.webhooks.IngestWebhook(ctx, "momo", domain.WebhookRequest{Body: body})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, ack.HTTPStatus)
	assert.Zero(t, testutil.Count(t, f.db, `SELECT COUNT(1) FROM payment_events`))
}

func TestIngestAmountMismatchDoesNotCapture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	body := momoIPN(t, momoConfig.SecretKey, "BK-1001", 1_000, 4088878653, 0)

	_, err := f.webhooks.IngestWebhook(ctx, "momo", domain.WebhookRequest{Body: body})
	require.NoError(t, err)

	payment, err := f.payments.FindByOrder(ctx, "momo", "BK-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, payment.Status)
	assert.Equal(t, int64(1), testutil.Count(t, f.db, `SELECT COUNT(1) FROM payment_events WHERE event_type = ?`, domain.EventTypeAmountMismatch))
}

func TestIngestUsesAdapterAck(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	adapter := mocks.NewMockAdapter(ctrl)
	source := mocks.NewMockAdapterSource(ctrl)
	source.EXPECT().Adapter("zalopay").Return(adapter, nil)

	f := newFixture(t, source)
	req := domain.WebhookRequest{Body: []byte(`{"data":"{}","mac":"x"}`)}
	adapter.EXPECT().Verify(gomock.Any(), req).Return(nil)
	adapter.EXPECT().Parse(gomock.Any(), req).Return(&domain.ProviderEvent{
		Provider: "zalopay", OrderID: "BK-1001", ProviderEventID: "1", EventType: domain.EventTypeSucceeded, Payload: req.Body,
	}, nil)
	adapter.EXPECT().Ack(gomock.Any()).Return(domain.Ack{HTTPStatus: http.StatusOK, Body: map[string]any{"return_code": 0}})

	// The open payment belongs to momo, so a zalopay callback finds nothing.
	ack, err := f.webhooks.IngestWebhook(ctx, "zalopay", req)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	assert.Equal(t, http.StatusOK, ack.HTTPStatus)
}
