package zalopay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/payment/adapters/gateway"
	"github.com/picklepickle/picklepay/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = config.ZaloPayConfig{
	AppID: "2553",
	Key1:  "PcY4iZIKFCIdgZvA6ueMcMHHUbRLYjPL",
	Key2:  "kLtgPl8HHhfvMuDHPwKfgfsY4Ydm9eIz",
}

func callbackBody(t *testing.T, key string, data callbackData) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(callback{Data: string(raw), Mac: gateway.SignSHA256(key, string(raw)), Type: callbackTypeOrder})
	require.NoError(t, err)
	return body
}

func paidOrder() callbackData {
	return callbackData{
		AppID:      2553,
		AppTransID: "260301_BK3001",
		AppTime:    1772360000000,
		Amount:     200000,
		ZpTransID:  260301000000123,
		ServerTime: 1772360100000,
		Channel:    38,
	}
}

func TestVerifyAndParse(t *testing.T) {
	adapter := New(testConfig, nil)
	ctx := context.Background()

	body := callbackBody(t, testConfig.Key2, paidOrder())
	require.NoError(t, adapter.Verify(ctx, domain.WebhookRequest{Body: body}))

	event, err := adapter.Parse(ctx, domain.WebhookRequest{Body: body})
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeSucceeded, event.EventType)
	assert.Equal(t, "260301000000123", event.ProviderEventID)
	assert.Equal(t, "260301_BK3001", event.OrderID)
	assert.Equal(t, int64(200000), event.Amount)
	assert.Equal(t, body, event.Payload)

	forged := callbackBody(t, testConfig.Key1, paidOrder())
	assert.ErrorIs(t, adapter.Verify(ctx, domain.WebhookRequest{Body: forged}), domain.ErrInvalidSignature)

	assert.ErrorIs(t, adapter.Verify(ctx, domain.WebhookRequest{Body: []byte(`{}`)}), domain.ErrInvalidPayload)

	other := paidOrder()
	other.AppID = 9999
	_, err = adapter.Parse(ctx, domain.WebhookRequest{Body: callbackBody(t, testConfig.Key2, other)})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestAck(t *testing.T) {
	adapter := New(testConfig, nil)

	assert.Equal(t, ack{ReturnCode: 1, ReturnMessage: "success"}, adapter.Ack(nil).Body)
	assert.Equal(t, -1, adapter.Ack(domain.ErrInvalidSignature).Body.(ack).ReturnCode)
	assert.Equal(t, 0, adapter.Ack(errors.New("db down")).Body.(ack).ReturnCode)
	assert.Equal(t, http.StatusOK, adapter.Ack(errors.New("db down")).HTTPStatus)
}

func TestQueryStatus(t *testing.T) {
	responses := make(chan queryResponse, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != queryPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		appTransID := r.PostForm.Get("app_trans_id")
		wantMac := gateway.SignSHA256(testConfig.Key1, testConfig.AppID+"|"+appTransID+"|"+testConfig.Key1)
		if r.PostForm.Get("mac") != wantMac {
			t.Errorf("unexpected mac for %s", appTransID)
		}
		_ = json.NewEncoder(w).Encode(<-responses)
	}))
	defer server.Close()

	cfg := testConfig
	cfg.Endpoint = server.URL
	adapter := New(cfg, server.Client())
	ctx := context.Background()
	query := domain.StatusQuery{OrderID: "260301_BK3001"}

	responses <- queryResponse{ReturnCode: 1, ZpTransID: 260301000000123, Amount: 200000}
	status, err := adapter.QueryStatus(ctx, query)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "260301000000123", status.ProviderEventID)
	assert.Equal(t, domain.EventTypeSucceeded, status.EventType)

	responses <- queryResponse{ReturnCode: 2, ReturnMessage: "failed"}
	status, err = adapter.QueryStatus(ctx, query)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "260301_BK3001-failed", status.ProviderEventID)
	assert.Equal(t, domain.EventTypeFailed, status.EventType)

	responses <- queryResponse{ReturnCode: 3, IsProcessing: true}
	status, err = adapter.QueryStatus(ctx, query)
	require.NoError(t, err)
	assert.Nil(t, status)

	responses <- queryResponse{ReturnCode: -49, ReturnMessage: "invalid mac"}
	_, err = adapter.QueryStatus(ctx, query)
	assert.ErrorIs(t, err, domain.ErrProviderQuery)
}
