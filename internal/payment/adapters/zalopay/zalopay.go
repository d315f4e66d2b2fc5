package zalopay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/payment/adapters/gateway"
	"github.com/picklepickle/picklepay/internal/payment/domain"
)

const Provider = "zalopay"

const queryPath = "/v2/query"

const (
	returnSuccess     = 1
	returnFailed      = 2
	returnProcessing  = 3
	callbackTypeOrder = 1
)

type Adapter struct {
	cfg    config.ZaloPayConfig
	client *http.Client
}

func New(cfg config.ZaloPayConfig, client *http.Client) *Adapter {
	if client == nil {
		client = gateway.NewHTTPClient()
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Provider() string {
	return Provider
}

type callback struct {
	Data string `json:"data"`
	Mac  string `json:"mac"`
	Type int    `json:"type"`
}

type callbackData struct {
	AppID       int64  `json:"app_id"`
	AppTransID  string `json:"app_trans_id"`
	AppTime     int64  `json:"app_time"`
	Amount      int64  `json:"amount"`
	ZpTransID   int64  `json:"zp_trans_id"`
	ServerTime  int64  `json:"server_time"`
	Channel     int    `json:"channel"`
	EmbedData   string `json:"embed_data"`
	Item        string `json:"item"`
	UserFee     int64  `json:"user_fee_amount"`
	Discount    int64  `json:"discount_amount"`
	AppUser     string `json:"app_user"`
	MerchantUID string `json:"merchant_user_id"`
}

func decode(body []byte) (callback, error) {
	var cb callback
	if err := json.Unmarshal(body, &cb); err != nil || cb.Data == "" {
		return callback{}, domain.ErrInvalidPayload
	}
	return cb, nil
}

func (a *Adapter) Verify(ctx context.Context, req domain.WebhookRequest) error {
	cb, err := decode(req.Body)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cb.Mac) == "" {
		return domain.ErrInvalidSignature
	}
	if !gateway.Equal(gateway.SignSHA256(a.cfg.Key2, cb.Data), cb.Mac) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Parse reads a payment callback. ZaloPay only calls back for paid orders.
func (a *Adapter) Parse(ctx context.Context, req domain.WebhookRequest) (*domain.ProviderEvent, error) {
	cb, err := decode(req.Body)
	if err != nil {
		return nil, err
	}
	if cb.Type != 0 && cb.Type != callbackTypeOrder {
		return nil, domain.ErrEventIgnored
	}
	var data callbackData
	if err := json.Unmarshal([]byte(cb.Data), &data); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(data.AppTransID) == "" || data.ZpTransID == 0 {
		return nil, domain.ErrInvalidEvent
	}
	if a.cfg.AppID != "" && strconv.FormatInt(data.AppID, 10) != a.cfg.AppID {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.ProviderEvent{
		Provider:        Provider,
		OrderID:         data.AppTransID,
		ProviderEventID: strconv.FormatInt(data.ZpTransID, 10),
		EventType:       domain.EventTypeSucceeded,
		Amount:          data.Amount,
		Payload:         req.Body,
	}, nil
}

type ack struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

// Ack answers 200 with a return code. ZaloPay retries return_code 0.
func (a *Adapter) Ack(err error) domain.Ack {
	body := ack{ReturnCode: 1, ReturnMessage: "success"}
	switch {
	case err == nil, errors.Is(err, domain.ErrEventIgnored):
	case errors.Is(err, domain.ErrInvalidSignature):
		body = ack{ReturnCode: -1, ReturnMessage: "mac not equal"}
	default:
		body = ack{ReturnCode: 0, ReturnMessage: err.Error()}
	}
	return domain.Ack{HTTPStatus: http.StatusOK, Body: body}
}

type queryResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	SubReturnCode int    `json:"sub_return_code"`
	IsProcessing  bool   `json:"is_processing"`
	Amount        int64  `json:"amount"`
	ZpTransID     int64  `json:"zp_trans_id"`
}

func (a *Adapter) QueryStatus(ctx context.Context, query domain.StatusQuery) (*domain.ProviderStatus, error) {
	form := url.Values{}
	form.Set("app_id", a.cfg.AppID)
	form.Set("app_trans_id", query.OrderID)
	form.Set("mac", gateway.SignSHA256(a.cfg.Key1, a.cfg.AppID+"|"+query.OrderID+"|"+a.cfg.Key1))

	var resp queryResponse
	body, err := gateway.PostForm(ctx, a.client, gateway.Endpoint(a.cfg.Endpoint, queryPath), form, &resp)
	if err != nil {
		return nil, err
	}

	switch resp.ReturnCode {
	case returnSuccess:
		return &domain.ProviderStatus{
			EventType:       domain.EventTypeSucceeded,
			ProviderEventID: strconv.FormatInt(resp.ZpTransID, 10),
			Raw:             body,
		}, nil
	case returnFailed:
		return &domain.ProviderStatus{
			EventType:       domain.EventTypeFailed,
			ProviderEventID: query.OrderID + "-failed",
			Raw:             body,
		}, nil
	case returnProcessing:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: zalopay return %d: %s", domain.ErrProviderQuery, resp.ReturnCode, resp.ReturnMessage)
	}
}
