package webhook

import (
	"context"
	"errors"
	"strings"

	obscontext "github.com/picklepickle/picklepay/internal/observability/context"
	obslogger "github.com/picklepickle/picklepay/internal/observability/logger"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	paymentdomain "github.com/picklepickle/picklepay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	Adapters   paymentdomain.AdapterSource
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	paymentSvc paymentdomain.Service
	adapters   paymentdomain.AdapterSource
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, req paymentdomain.WebhookRequest) (paymentdomain.Ack, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.Ack{}, paymentdomain.ErrInvalidProvider
	}
	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return paymentdomain.Ack{}, err
	}
	log := obslogger.WithContext(ctx, s.log).With(zap.String("provider", provider))

	if err := adapter.Verify(ctx, req); err != nil {
		s.reject(ctx, log, provider, err)
		return adapter.Ack(err), err
	}

	event, err := adapter.Parse(ctx, req)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			log.Debug("payment webhook ignored")
			return adapter.Ack(nil), nil
		}
		s.reject(ctx, log, provider, err)
		return adapter.Ack(err), err
	}

	payment, err := s.paymentSvc.FindByOrder(ctx, provider, event.OrderID)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrPaymentNotFound) {
			log.Warn("payment webhook for unknown order", zap.String("order_id", event.OrderID))
		}
		return adapter.Ack(err), err
	}
	ctx = obscontext.WithPaymentID(ctx, payment.ID)
	log = obslogger.WithPayment(log, payment.ID)

	eventType := event.EventType
	if eventType == paymentdomain.EventTypeSucceeded && event.Amount > 0 && event.Amount != payment.Amount {
		// recorded for review instead of capturing a different amount
		eventType = paymentdomain.EventTypeAmountMismatch
		s.obsMetrics.RecordAnomaly(ctx, paymentdomain.EventTypeAmountMismatch)
		log.Warn("payment webhook amount differs from payment",
			zap.Int64("expected", payment.Amount),
			zap.Int64("reported", event.Amount),
		)
	}

	result, err := s.paymentSvc.Record(ctx, paymentdomain.RecordRequest{
		PaymentID:       payment.ID,
		EventType:       eventType,
		Source:          paymentdomain.SourceWebhook,
		ProviderEventID: event.ProviderEventID,
		Payload:         event.Payload,
	})
	if err != nil {
		log.Error("payment webhook not recorded", zap.Error(err))
		return adapter.Ack(err), err
	}
	log.Debug("payment webhook handled",
		zap.Bool("accepted", result.Accepted),
		zap.String("status", string(result.Status)),
	)
	return adapter.Ack(nil), nil
}

func (s *Service) reject(ctx context.Context, log *zap.Logger, provider string, err error) {
	reason := "invalid_event"
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		reason = "invalid_signature"
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		reason = "invalid_payload"
	}
	s.obsMetrics.RecordWebhookRejected(ctx, provider, reason)
	log.Warn("payment webhook rejected", zap.String("reason", reason), zap.Error(err))
}
