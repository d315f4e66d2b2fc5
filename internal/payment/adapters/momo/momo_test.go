package momo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/payment/adapters/gateway"
	"github.com/picklepickle/picklepay/internal/payment/domain"
)

var testConfig = config.MoMoConfig{
	PartnerCode: "MOMOPP01",
	AccessKey:   "F8BBA842ECF85",
	SecretKey:   "K951B6PE1waDMi640xX08PD3vg6EkVlz",
}

func signedIPN(t *testing.T, secret string, n ipn) []byte {
	t.Helper()
	n.Signature = gateway.SignSHA256(secret, n.rawSignature(testConfig.AccessKey))
	body, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal ipn: %v", err)
	}
	return body
}

func baseIPN() ipn {
	return ipn{
		PartnerCode:  testConfig.PartnerCode,
		OrderID:      "BK-1001",
		RequestID:    "req-1",
		Amount:       150000,
		OrderInfo:    "Court 3 booking",
		OrderType:    "momo_wallet",
		TransID:      4088878653,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1721720663942,
	}
}

func TestVerifySignature(t *testing.T) {
	adapter := New(testConfig, nil)
	ctx := context.Background()

	body := signedIPN(t, testConfig.SecretKey, baseIPN())
	if err := adapter.Verify(ctx, domain.WebhookRequest{Body: body}); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	forged := signedIPN(t, "wrong-secret", baseIPN())
	if err := adapter.Verify(ctx, domain.WebhookRequest{Body: forged}); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	tampered := baseIPN()
	tampered.Signature = gateway.SignSHA256(testConfig.SecretKey, baseIPN().rawSignature(testConfig.AccessKey))
	tampered.Amount = 1
	raw, _ := json.Marshal(tampered)
	if err := adapter.Verify(ctx, domain.WebhookRequest{Body: raw}); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected tampered amount to fail verification, got %v", err)
	}

	if err := adapter.Verify(ctx, domain.WebhookRequest{Body: []byte("not json")}); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func TestParse(t *testing.T) {
	adapter := New(testConfig, nil)

	tests := []struct {
		name       string
		resultCode int
		transID    int64
		wantType   string
		wantID     string
		wantErr    error
	}{
		{name: "success", resultCode: 0, transID: 4088878653, wantType: domain.EventTypeSucceeded, wantID: "4088878653-0"},
		{name: "authorized", resultCode: 9000, transID: 4088878653, wantType: domain.EventTypeAuthorized, wantID: "4088878653-9000"},
		{name: "user declined", resultCode: 1006, transID: 4088878654, wantType: domain.EventTypeFailed, wantID: "4088878654-1006"},
		{name: "failure without transaction", resultCode: 1005, transID: 0, wantType: domain.EventTypeFailed, wantID: "BK-1001-1005"},
		{name: "still pending", resultCode: 1000, wantErr: domain.ErrEventIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := baseIPN()
			n.ResultCode = tt.resultCode
			n.TransID = tt.transID
			body := signedIPN(t, testConfig.SecretKey, n)

			event, err := adapter.Parse(context.Background(), domain.WebhookRequest{Body: body})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if event.EventType != tt.wantType {
				t.Fatalf("expected type %s, got %s", tt.wantType, event.EventType)
			}
			if event.ProviderEventID != tt.wantID {
				t.Fatalf("expected event id %s, got %s", tt.wantID, event.ProviderEventID)
			}
			if event.OrderID != "BK-1001" || event.Amount != 150000 || event.Provider != Provider {
				t.Fatalf("unexpected event: %+v", event)
			}
			if !json.Valid(event.Payload) {
				t.Fatalf("expected payload to be the raw json body")
			}
		})
	}
}

func TestAck(t *testing.T) {
	adapter := New(testConfig, nil)
	if got := adapter.Ack(nil).HTTPStatus; got != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", got)
	}
	if got := adapter.Ack(domain.ErrInvalidSignature).HTTPStatus; got != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", got)
	}
	if got := adapter.Ack(errors.New("boom")).HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestQueryStatus(t *testing.T) {
	var (
		mu         sync.Mutex
		got        queryRequest
		resultCode atomic.Int64
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != queryPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		got = req
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(queryResponse{
			PartnerCode: testConfig.PartnerCode,
			OrderID:     req.OrderID,
			RequestID:   req.RequestID,
			Amount:      150000,
			TransID:     4088878653,
			ResultCode:  int(resultCode.Load()),
		})
	}))
	defer server.Close()

	cfg := testConfig
	cfg.Endpoint = server.URL
	adapter := New(cfg, server.Client())
	ctx := context.Background()

	status, err := adapter.QueryStatus(ctx, domain.StatusQuery{OrderID: "BK-1001"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if status == nil || status.EventType != domain.EventTypeSucceeded || status.ProviderEventID != "4088878653-0" {
		t.Fatalf("unexpected status: %+v", status)
	}
	mu.Lock()
	sent := got
	mu.Unlock()
	wantSig := gateway.SignSHA256(cfg.SecretKey, "accessKey="+cfg.AccessKey+"&orderId=BK-1001&partnerCode="+cfg.PartnerCode+"&requestId="+sent.RequestID)
	if sent.Signature != wantSig {
		t.Fatalf("query request not signed as expected")
	}

	resultCode.Store(1000)
	status, err = adapter.QueryStatus(ctx, domain.StatusQuery{OrderID: "BK-1001"})
	if err != nil || status != nil {
		t.Fatalf("expected no final status for pending order, got %+v, %v", status, err)
	}

	resultCode.Store(1006)
	status, err = adapter.QueryStatus(ctx, domain.StatusQuery{OrderID: "BK-1001"})
	if err != nil || status == nil || status.EventType != domain.EventTypeFailed {
		t.Fatalf("expected failed status, got %+v, %v", status, err)
	}

	resultCode.Store(42)
	if _, err = adapter.QueryStatus(ctx, domain.StatusQuery{OrderID: "BK-1001"}); !errors.Is(err, domain.ErrProviderQuery) {
		t.Fatalf("expected provider query error, got %v", err)
	}
}
