package momo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/payment/adapters/gateway"
	"github.com/picklepickle/picklepay/internal/payment/domain"
)

const Provider = "momo"

const queryPath = "/v2/gateway/api/query"

const (
	resultSuccess    = 0
	resultAuthorized = 9000
)

// pending result codes mean the customer has not finished paying yet.
var pendingCodes = map[int]bool{1000: true, 7000: true, 7002: true}

type Adapter struct {
	cfg    config.MoMoConfig
	client *http.Client
}

func New(cfg config.MoMoConfig, client *http.Client) *Adapter {
	if client == nil {
		client = gateway.NewHTTPClient()
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Provider() string {
	return Provider
}

type ipn struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

func (n ipn) rawSignature(accessKey string) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		accessKey, n.Amount, n.ExtraData, n.Message, n.OrderID, n.OrderInfo, n.OrderType,
		n.PartnerCode, n.PayType, n.RequestID, n.ResponseTime, n.ResultCode, n.TransID,
	)
}

func decode(body []byte) (ipn, error) {
	var n ipn
	if err := json.Unmarshal(body, &n); err != nil {
		return ipn{}, domain.ErrInvalidPayload
	}
	return n, nil
}

func (a *Adapter) Verify(ctx context.Context, req domain.WebhookRequest) error {
	n, err := decode(req.Body)
	if err != nil {
		return err
	}
	if strings.TrimSpace(n.Signature) == "" {
		return domain.ErrInvalidSignature
	}
	if a.cfg.PartnerCode != "" && n.PartnerCode != a.cfg.PartnerCode {
		return domain.ErrInvalidSignature
	}
	expected := gateway.SignSHA256(a.cfg.SecretKey, n.rawSignature(a.cfg.AccessKey))
	if !gateway.Equal(expected, n.Signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, req domain.WebhookRequest) (*domain.ProviderEvent, error) {
	n, err := decode(req.Body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(n.OrderID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	if pendingCodes[n.ResultCode] {
		return nil, domain.ErrEventIgnored
	}

	eventType := domain.EventTypeFailed
	switch n.ResultCode {
	case resultSuccess:
		eventType = domain.EventTypeSucceeded
	case resultAuthorized:
		eventType = domain.EventTypeAuthorized
	}

	return &domain.ProviderEvent{
		Provider:        Provider,
		OrderID:         n.OrderID,
		ProviderEventID: eventID(n.TransID, n.OrderID, n.ResultCode),
		EventType:       eventType,
		Amount:          n.Amount,
		Payload:         req.Body,
	}, nil
}

// Ack answers an IPN. MoMo retries anything that is not 2xx.
func (a *Adapter) Ack(err error) domain.Ack {
	switch {
	case err == nil, errors.Is(err, domain.ErrEventIgnored):
		return domain.Ack{HTTPStatus: http.StatusNoContent}
	case errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrInvalidEvent):
		return domain.Ack{HTTPStatus: http.StatusBadRequest}
	default:
		return domain.Ack{HTTPStatus: http.StatusInternalServerError}
	}
}

type queryRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type queryResponse struct {
	PartnerCode string `json:"partnerCode"`
	OrderID     string `json:"orderId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	TransID     int64  `json:"transId"`
	ResultCode  int    `json:"resultCode"`
	Message     string `json:"message"`
}

// QueryStatus asks MoMo for the transaction outcome of an order.
// Result codes below 1000 describe the query itself and are reported as errors.
func (a *Adapter) QueryStatus(ctx context.Context, query domain.StatusQuery) (*domain.ProviderStatus, error) {
	requestID := uuid.NewString()
	raw := fmt.Sprintf("accessKey=%s&orderId=%s&partnerCode=%s&requestId=%s",
		a.cfg.AccessKey, query.OrderID, a.cfg.PartnerCode, requestID)

	var resp queryResponse
	body, err := gateway.PostJSON(ctx, a.client, gateway.Endpoint(a.cfg.Endpoint, queryPath), queryRequest{
		PartnerCode: a.cfg.PartnerCode,
		RequestID:   requestID,
		OrderID:     query.OrderID,
		Lang:        "en",
		Signature:   gateway.SignSHA256(a.cfg.SecretKey, raw),
	}, &resp)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.ResultCode == resultSuccess:
		return &domain.ProviderStatus{
			EventType:       domain.EventTypeSucceeded,
			ProviderEventID: eventID(resp.TransID, query.OrderID, resp.ResultCode),
			Raw:             body,
		}, nil
	case resp.ResultCode == resultAuthorized, pendingCodes[resp.ResultCode]:
		return nil, nil
	case resp.ResultCode < 1000:
		return nil, fmt.Errorf("%w: momo result %d: %s", domain.ErrProviderQuery, resp.ResultCode, resp.Message)
	default:
		return &domain.ProviderStatus{
			EventType:       domain.EventTypeFailed,
			ProviderEventID: eventID(resp.TransID, query.OrderID, resp.ResultCode),
			Raw:             body,
		}, nil
	}
}

// eventID matches between IPN and query so a polled outcome dedups against its callback.
func eventID(transID int64, orderID string, resultCode int) string {
	ref := orderID
	if transID != 0 {
		ref = strconv.FormatInt(transID, 10)
	}
	return ref + "-" + strconv.Itoa(resultCode)
}
