package vnpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/payment/adapters/gateway"
	"github.com/picklepickle/picklepay/internal/payment/domain"
)

const Provider = "vnpay"

const (
	codeSuccess = "00"
	// query response code for an unknown transaction
	codeNotFound      = "91"
	statusPending     = "01"
	apiVersion        = "2.1.0"
	dateLayout        = "20060102150405"
	paramSecureHash   = "vnp_SecureHash"
	paramSecureHashTy = "vnp_SecureHashType"
)

// VNPay timestamps are wall clock in Vietnam.
var vietnam = time.FixedZone("ICT", 7*60*60)

type Adapter struct {
	cfg    config.VNPayConfig
	client *http.Client
	clock  clock.Clock
}

func New(cfg config.VNPayConfig, client *http.Client, clk clock.Clock) *Adapter {
	if client == nil {
		client = gateway.NewHTTPClient()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Adapter{cfg: cfg, client: client, clock: clk}
}

func (a *Adapter) Provider() string {
	return Provider
}

// params reads the IPN from the query string, or from a form body when posted.
func params(req domain.WebhookRequest) (url.Values, error) {
	if len(req.Query) > 0 {
		return req.Query, nil
	}
	if len(req.Body) == 0 {
		return nil, domain.ErrInvalidPayload
	}
	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return values, nil
}

// HashData builds the canonical string VNPay signs: vnp_ params sorted by key,
// values query-escaped, hash fields excluded.
func HashData(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if !strings.HasPrefix(key, "vnp_") || key == paramSecureHash || key == paramSecureHashTy {
			continue
		}
		if values.Get(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(values.Get(key)))
	}
	return b.String()
}

func (a *Adapter) Verify(ctx context.Context, req domain.WebhookRequest) error {
	values, err := params(req)
	if err != nil {
		return err
	}
	signature := values.Get(paramSecureHash)
	if signature == "" {
		return domain.ErrInvalidSignature
	}
	if a.cfg.TmnCode != "" && values.Get("vnp_TmnCode") != a.cfg.TmnCode {
		return domain.ErrInvalidSignature
	}
	if !gateway.Equal(gateway.SignSHA512(a.cfg.HashSecret, HashData(values)), signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, req domain.WebhookRequest) (*domain.ProviderEvent, error) {
	values, err := params(req)
	if err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(values.Get("vnp_TxnRef"))
	transactionNo := strings.TrimSpace(values.Get("vnp_TransactionNo"))
	status := strings.TrimSpace(values.Get("vnp_TransactionStatus"))
	if orderID == "" || transactionNo == "" || status == "" {
		return nil, domain.ErrInvalidEvent
	}
	amount, err := strconv.ParseInt(values.Get("vnp_Amount"), 10, 64)
	if err != nil || amount < 0 {
		return nil, domain.ErrInvalidPayload
	}

	eventType := domain.EventTypeFailed
	if values.Get("vnp_ResponseCode") == codeSuccess && status == codeSuccess {
		eventType = domain.EventTypeSucceeded
	}

	payload, err := toJSON(values)
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return &domain.ProviderEvent{
		Provider:        Provider,
		OrderID:         orderID,
		ProviderEventID: transactionNo + "-" + status,
		EventType:       eventType,
		Amount:          amount / 100,
		Payload:         payload,
	}, nil
}

// toJSON flattens the IPN parameters into a JSON object for the event log.
func toJSON(values url.Values) ([]byte, error) {
	flat := make(map[string]string, len(values))
	for key := range values {
		flat[key] = values.Get(key)
	}
	return json.Marshal(flat)
}

type ack struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// Ack always answers 200; VNPay reads the outcome from RspCode.
func (a *Adapter) Ack(err error) domain.Ack {
	body := ack{RspCode: "00", Message: "Confirm Success"}
	switch {
	case err == nil, errors.Is(err, domain.ErrEventIgnored):
	case errors.Is(err, domain.ErrInvalidSignature):
		body = ack{RspCode: "97", Message: "Invalid Checksum"}
	case errors.Is(err, domain.ErrPaymentNotFound):
		body = ack{RspCode: "01", Message: "Order not Found"}
	default:
		body = ack{RspCode: "99", Message: "Unknown error"}
	}
	return domain.Ack{HTTPStatus: http.StatusOK, Body: body}
}

type queryRequest struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TxnRef          string `json:"vnp_TxnRef"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateDate      string `json:"vnp_CreateDate"`
	IPAddr          string `json:"vnp_IpAddr"`
	SecureHash      string `json:"vnp_SecureHash"`
}

type queryResponse struct {
	ResponseCode      string `json:"vnp_ResponseCode"`
	Message           string `json:"vnp_Message"`
	TxnRef            string `json:"vnp_TxnRef"`
	TransactionNo     string `json:"vnp_TransactionNo"`
	TransactionStatus string `json:"vnp_TransactionStatus"`
}

// QueryStatus calls the querydr merchant API for one order.
func (a *Adapter) QueryStatus(ctx context.Context, query domain.StatusQuery) (*domain.ProviderStatus, error) {
	req := queryRequest{
		RequestID:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		Version:         apiVersion,
		Command:         "querydr",
		TmnCode:         a.cfg.TmnCode,
		TxnRef:          query.OrderID,
		OrderInfo:       "query " + query.OrderID,
		TransactionDate: query.CreatedAt.In(vietnam).Format(dateLayout),
		CreateDate:      a.clock.Now().In(vietnam).Format(dateLayout),
		IPAddr:          "127.0.0.1",
	}
	req.SecureHash = gateway.SignSHA512(a.cfg.HashSecret, strings.Join([]string{
		req.RequestID, req.Version, req.Command, req.TmnCode, req.TxnRef,
		req.TransactionDate, req.CreateDate, req.IPAddr, req.OrderInfo,
	}, "|"))

	var resp queryResponse
	body, err := gateway.PostJSON(ctx, a.client, a.cfg.Endpoint, req, &resp)
	if err != nil {
		return nil, err
	}

	switch resp.ResponseCode {
	case codeSuccess:
	case codeNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: vnpay response %s: %s", domain.ErrProviderQuery, resp.ResponseCode, resp.Message)
	}

	switch resp.TransactionStatus {
	case statusPending:
		return nil, nil
	case codeSuccess:
		return &domain.ProviderStatus{
			EventType:       domain.EventTypeSucceeded,
			ProviderEventID: resp.TransactionNo + "-" + resp.TransactionStatus,
			Raw:             body,
		}, nil
	default:
		return &domain.ProviderStatus{
			EventType:       domain.EventTypeFailed,
			ProviderEventID: resp.TransactionNo + "-" + resp.TransactionStatus,
			Raw:             body,
		}, nil
	}
}
