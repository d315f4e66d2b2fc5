package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/picklepickle/picklepay/internal/audit/domain"
	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	invoicedomain "github.com/picklepickle/picklepay/internal/invoice/domain"
	obslogger "github.com/picklepickle/picklepay/internal/observability/logger"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	"github.com/picklepickle/picklepay/internal/payment/domain"
	"github.com/picklepickle/picklepay/internal/payment/state"
	"github.com/picklepickle/picklepay/internal/paymentlock"
	splitdomain "github.com/picklepickle/picklepay/internal/split/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	// pollMaxAge stops polling orders the provider has long forgotten.
	pollMaxAge      = 24 * time.Hour
	maxProgressions = 3
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Locker     paymentlock.Locker
	Splits     splitdomain.Service
	Invoices   invoicedomain.Service
	Queriers   domain.QuerierSource `optional:"true"`
	Cfg        config.Config        `optional:"true"`
	Clock      clock.Clock          `optional:"true"`
	AuditSvc   auditdomain.Service  `optional:"true"`
	ObsMetrics *obsmetrics.Metrics  `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	locker     paymentlock.Locker
	splits     splitdomain.Service
	invoices   invoicedomain.Service
	queriers   domain.QuerierSource
	pollAfter  time.Duration
	clock      clock.Clock
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	locker := p.Locker
	if locker == nil {
		locker = paymentlock.NewLocalLocker()
	}
	pollAfter := p.Cfg.PollAfter
	if pollAfter <= 0 {
		pollAfter = 2 * time.Minute
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		locker:     locker,
		splits:     p.Splits,
		invoices:   p.Invoices,
		queriers:   p.Queriers,
		pollAfter:  pollAfter,
		clock:      c,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// Open registers the payment aggregate for a booking. Calling it again for the
// same provider order returns the existing payment.
func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (*domain.Payment, error) {
	req, err := normalizeOpenRequest(req)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = "pay_" + s.genID.Generate().String()
	}

	now := s.clock.Now().UTC()
	inserted, err := s.repo.InsertPayment(ctx, s.db, domain.Payment{
		ID:              req.ID,
		BookingID:       req.BookingID,
		VenueID:         req.VenueID,
		Provider:        req.Provider,
		ProviderOrderID: req.ProviderOrderID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByOrder(ctx, s.db, req.Provider, req.ProviderOrderID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// the id is taken by a different order
		return nil, domain.ErrDuplicatePayment
	}
	if inserted {
		s.log.Info("payment opened",
			zap.String("payment_id", existing.ID),
			zap.String("provider", existing.Provider),
			zap.String("provider_order_id", existing.ProviderOrderID),
			zap.Int64("amount", existing.Amount),
		)
	}
	return existing, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.PaymentView, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, s.db, payment.ID)
	if err != nil {
		return nil, err
	}
	splits, err := s.splits.ListByPayment(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	anomalies, err := s.repo.ListAnomalies(ctx, s.db, domain.AnomalyFilter{PaymentID: payment.ID, IncludeResolved: true})
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoices.FindByPayment(ctx, payment.ID)
	if err != nil && !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		return nil, err
	}

	if events == nil {
		events = []domain.EventRecord{}
	}
	if splits == nil {
		splits = []splitdomain.PaymentSplit{}
	}
	if anomalies == nil {
		anomalies = []domain.Anomaly{}
	}
	return &domain.PaymentView{
		Payment:   *payment,
		Events:    events,
		Splits:    splits,
		Invoice:   invoice,
		Anomalies: anomalies,
	}, nil
}

func (s *Service) FindByOrder(ctx context.Context, provider, orderID string) (*domain.Payment, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	orderID = strings.TrimSpace(orderID)
	if provider == "" || orderID == "" {
		return nil, domain.ErrPaymentNotFound
	}
	payment, err := s.repo.FindByOrder(ctx, s.db, provider, orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// Record appends an event and re-derives the payment in one transaction.
// Side effects of a capture or refund run after commit; their failures are
// kept on the payment for the reconciliation job instead of being returned.
func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (domain.RecordResult, error) {
	req, err := normalizeRecordRequest(req)
	if err != nil {
		return domain.RecordResult{}, err
	}
	log := obslogger.WithPayment(obslogger.WithContext(ctx, s.log), req.PaymentID)

	unlock, err := s.locker.Lock(ctx, paymentlock.Key(req.PaymentID))
	if err != nil {
		return domain.RecordResult{}, err
	}
	defer unlock()

	var (
		result    domain.RecordResult
		payment   *domain.Payment
		anomalies []domain.Anomaly
	)
	now := s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindPayment(ctx, tx, req.PaymentID, true)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrPaymentNotFound
		}

		var providerEventID *string
		if req.ProviderEventID != "" {
			providerEventID = &req.ProviderEventID
		}
		event := domain.EventRecord{
			ID:              s.genID.Generate(),
			PaymentID:       current.ID,
			Provider:        current.Provider,
			EventType:       req.EventType,
			Source:          req.Source,
			ProviderEventID: providerEventID,
			Payload:         datatypes.JSON(req.Payload),
			ReceivedAt:      now,
		}
		inserted, err := s.repo.InsertEvent(ctx, tx, event)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := s.repo.FindEventByProviderID(ctx, tx, current.Provider, req.ProviderEventID)
			if err != nil {
				return err
			}
			if existing == nil {
				return domain.ErrDuplicateEvent
			}
			payment = current
			result = domain.RecordResult{Accepted: false, EventID: existing.ID, Status: current.Status}
			return nil
		}

		payment, anomalies, err = s.refold(ctx, tx, current, now, true)
		if err != nil {
			return err
		}
		result = domain.RecordResult{Accepted: true, EventID: event.ID, Status: payment.Status}
		return nil
	})
	if err != nil {
		return domain.RecordResult{}, err
	}

	if !result.Accepted {
		s.obsMetrics.RecordPaymentEvent(ctx, payment.Provider, req.EventType, string(req.Source), "duplicate")
		log.Info("duplicate payment event ignored",
			zap.String("provider_event_id", req.ProviderEventID),
			zap.String("event_id", result.EventID.String()),
		)
		return result, nil
	}

	s.obsMetrics.RecordPaymentEvent(ctx, payment.Provider, req.EventType, string(req.Source), "accepted")
	s.reportAnomalies(ctx, log, anomalies)
	log.Info("payment event recorded",
		zap.String("event_id", result.EventID.String()),
		zap.String("event_type", req.EventType),
		zap.String("source", string(req.Source)),
		zap.String("status", string(payment.Status)),
	)

	payment, progressErr := s.progress(ctx, payment)
	if progressErr != nil {
		log.Warn("payment progression deferred to reconciliation", zap.Error(progressErr))
	}
	result.Status = payment.Status
	return result, nil
}

// Reconcile re-derives the payment from its log and retries pending side effects.
func (s *Service) Reconcile(ctx context.Context, id string) (*domain.Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidPayment
	}
	log := obslogger.WithPayment(obslogger.WithContext(ctx, s.log), id)

	unlock, err := s.locker.Lock(ctx, paymentlock.Key(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		payment   *domain.Payment
		anomalies []domain.Anomaly
	)
	now := s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindPayment(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrPaymentNotFound
		}
		payment, anomalies, err = s.refold(ctx, tx, current, now, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.reportAnomalies(ctx, log, anomalies)

	return s.progress(ctx, payment)
}

// ConfirmReturn handles the customer's return from the provider page. The
// reported outcome is a hint only: a pending payment is queued for polling.
func (s *Service) ConfirmReturn(ctx context.Context, req domain.ConfirmReturnRequest) (*domain.Payment, error) {
	payment, err := s.FindByOrder(ctx, req.Provider, req.OrderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.StatusPending {
		return payment, nil
	}

	requested, err := s.repo.RequestPoll(ctx, s.db, payment.ID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if requested {
		obslogger.WithPayment(obslogger.WithContext(ctx, s.log), payment.ID).Info("payment poll requested by client return",
			zap.Bool("client_success", req.Success),
		)
	}
	return s.findPayment(ctx, payment.ID)
}

// PollStatus queries the provider outside the payment lock and records the
// answer only when it would change the derived status.
func (s *Service) PollStatus(ctx context.Context, id string) (domain.PollResult, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return domain.PollResult{}, err
	}
	if payment.Status != domain.StatusPending {
		return domain.PollResult{Status: payment.Status}, nil
	}
	if s.queriers == nil {
		return domain.PollResult{}, domain.ErrProviderNotFound
	}
	querier, err := s.queriers.Querier(payment.Provider)
	if err != nil {
		return domain.PollResult{}, err
	}

	status, err := querier.QueryStatus(ctx, domain.StatusQuery{
		OrderID:   payment.ProviderOrderID,
		Amount:    payment.Amount,
		CreatedAt: payment.CreatedAt,
	})
	if err != nil {
		return domain.PollResult{}, fmt.Errorf("query %s status: %w", payment.Provider, err)
	}
	if status == nil {
		return domain.PollResult{Status: payment.Status}, nil
	}

	changes, err := s.wouldChange(ctx, payment, status.EventType)
	if err != nil {
		return domain.PollResult{}, err
	}
	if !changes {
		return domain.PollResult{Status: payment.Status}, nil
	}

	result, err := s.Record(ctx, domain.RecordRequest{
		PaymentID:       payment.ID,
		EventType:       status.EventType,
		Source:          domain.SourcePoll,
		ProviderEventID: status.ProviderEventID,
		Payload:         pollPayload(status.Raw),
	})
	if err != nil {
		return domain.PollResult{}, err
	}
	return domain.PollResult{Recorded: result.Accepted, Status: result.Status}, nil
}

func (s *Service) ListPollCandidates(ctx context.Context, limit int) ([]domain.Payment, error) {
	now := s.clock.Now().UTC()
	return s.repo.ListPollCandidates(ctx, s.db, now.Add(-s.pollAfter), now.Add(-pollMaxAge), clampLimit(limit))
}

func (s *Service) ListStalled(ctx context.Context, limit int) ([]domain.Payment, error) {
	return s.repo.ListStalled(ctx, s.db, s.clock.Now().UTC().Add(-s.pollAfter), clampLimit(limit))
}

func (s *Service) ListAnomalies(ctx context.Context, req domain.ListAnomaliesRequest) ([]domain.Anomaly, error) {
	return s.repo.ListAnomalies(ctx, s.db, domain.AnomalyFilter{
		PaymentID:       strings.TrimSpace(req.PaymentID),
		IncludeResolved: req.IncludeResolved,
		Limit:           clampLimit(req.Limit),
	})
}

func (s *Service) ResolveAnomaly(ctx context.Context, id snowflake.ID, note string) (*domain.Anomaly, error) {
	anomaly, err := s.repo.FindAnomaly(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if anomaly == nil {
		return nil, domain.ErrAnomalyNotFound
	}
	if anomaly.ResolvedAt != nil {
		return anomaly, nil
	}

	if _, err := s.repo.ResolveAnomaly(ctx, s.db, id, s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	resolved, err := s.repo.FindAnomaly(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		err := s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     "payment.anomaly.resolve",
			TargetType: auditdomain.TargetPaymentAnomaly,
			TargetID:   id.String(),
			Metadata: map[string]any{
				"payment_id": anomaly.PaymentID,
				"event_id":   anomaly.EventID.String(),
				"kind":       string(anomaly.Kind),
				"note":       strings.TrimSpace(note),
			},
		})
		if err != nil {
			s.log.Warn("failed to write audit log", zap.String("action", "payment.anomaly.resolve"), zap.Error(err))
		}
	}
	return resolved, nil
}

// refold re-derives status from the event log and stores it with a version check.
// Without force an unchanged watermark skips the write.
func (s *Service) refold(ctx context.Context, tx *gorm.DB, current *domain.Payment, now time.Time, force bool) (*domain.Payment, []domain.Anomaly, error) {
	records, err := s.repo.ListEvents(ctx, tx, current.ID)
	if err != nil {
		return nil, nil, err
	}
	out := state.Derive(state.FromRecords(records))
	if !force && int64(out.LastEventID) == current.LastEventID {
		return current, nil, nil
	}

	next := state.Advance(current.Status, out.Status)

	var anomalies []domain.Anomaly
	for _, found := range out.Anomalies {
		anomaly := domain.Anomaly{
			ID:        s.genID.Generate(),
			PaymentID: current.ID,
			EventID:   found.EventID,
			Kind:      found.Kind,
			Detail:    anomalyDetail(found.Kind),
			CreatedAt: now,
		}
		inserted, err := s.repo.InsertAnomaly(ctx, tx, anomaly)
		if err != nil {
			return nil, nil, err
		}
		if inserted {
			anomalies = append(anomalies, anomaly)
		}
	}

	update := domain.FoldUpdate{
		ID:              current.ID,
		ExpectedVersion: current.Version,
		Status:          next,
		LastEventID:     int64(out.LastEventID),
		UpdatedAt:       now,
	}
	switch next {
	case domain.StatusFailed:
		update.FailedAt = out.FailedAt
	case domain.StatusRefunded:
		update.CapturedAt = out.CapturedAt
		update.RefundedAt = out.RefundedAt
	case domain.StatusCaptured, domain.StatusSplitDone, domain.StatusInvoiced:
		update.CapturedAt = out.CapturedAt
	}

	updated, err := s.repo.UpdateFold(ctx, tx, update)
	if err != nil {
		return nil, nil, err
	}
	if !updated {
		return nil, nil, domain.ErrConcurrentUpdate
	}

	payment, err := s.repo.FindPayment(ctx, tx, current.ID, false)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, domain.ErrPaymentNotFound
	}
	return payment, anomalies, nil
}

// progress drives the side effects owed by the payment's current status.
// Each step is idempotent, so a failed step is retried as a whole later.
func (s *Service) progress(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	for i := 0; i < maxProgressions; i++ {
		var (
			from, to domain.Status
			err      error
		)
		switch payment.Status {
		case domain.StatusCaptured:
			from, to = domain.StatusCaptured, domain.StatusSplitDone
			_, err = s.splits.ComputeSplits(ctx, splitdomain.SplitRequest{
				PaymentID:      payment.ID,
				CapturedAmount: payment.Amount,
				Currency:       payment.Currency,
				VenueID:        payment.VenueID,
				Provider:       payment.Provider,
				CapturedAt:     timeOrZero(payment.CapturedAt),
			})
			if err != nil {
				err = fmt.Errorf("compute splits: %w", err)
			}
		case domain.StatusSplitDone:
			from, to = domain.StatusSplitDone, domain.StatusInvoiced
			_, err = s.invoices.IssueInvoice(ctx, invoicedomain.IssueRequest{
				PaymentID: payment.ID,
				BookingID: payment.BookingID,
				Amount:    payment.Amount,
				Currency:  payment.Currency,
			})
			if err != nil {
				err = fmt.Errorf("issue invoice: %w", err)
			}
		case domain.StatusRefunded:
			if _, err = s.splits.ReverseForRefund(ctx, payment.ID, timeOrZero(payment.RefundedAt)); err != nil {
				return s.failProgress(ctx, payment, fmt.Errorf("reverse splits: %w", err))
			}
			if payment.LastError != nil {
				if err := s.repo.SetLastError(ctx, s.db, payment.ID, nil, s.clock.Now().UTC()); err != nil {
					return payment, err
				}
				payment.LastError = nil
			}
			return payment, nil
		default:
			return payment, nil
		}
		if err != nil {
			return s.failProgress(ctx, payment, err)
		}

		if _, err := s.repo.AdvanceStatus(ctx, s.db, payment.ID, from, to, s.clock.Now().UTC()); err != nil {
			return payment, err
		}
		next, err := s.findPayment(ctx, payment.ID)
		if err != nil {
			return payment, err
		}
		payment = next
	}
	return payment, nil
}

func (s *Service) failProgress(ctx context.Context, payment *domain.Payment, cause error) (*domain.Payment, error) {
	message := cause.Error()
	if err := s.repo.SetLastError(ctx, s.db, payment.ID, &message, s.clock.Now().UTC()); err != nil {
		s.log.Warn("failed to record payment error", zap.String("payment_id", payment.ID), zap.Error(err))
	} else {
		payment.LastError = &message
	}
	return payment, cause
}

// wouldChange reports whether recording eventType would move the payment or raise an anomaly.
func (s *Service) wouldChange(ctx context.Context, payment *domain.Payment, eventType string) (bool, error) {
	records, err := s.repo.ListEvents(ctx, s.db, payment.ID)
	if err != nil {
		return false, err
	}
	events := state.FromRecords(records)
	before := state.Derive(events)

	candidate := state.Event{
		ID:         before.LastEventID + 1,
		EventType:  eventType,
		ReceivedAt: s.clock.Now().UTC(),
	}
	for _, ev := range events {
		if ev.ReceivedAt.After(candidate.ReceivedAt) {
			candidate.ReceivedAt = ev.ReceivedAt
		}
	}
	after := state.Derive(append(events, candidate))

	if state.Advance(payment.Status, after.Status) != payment.Status {
		return true, nil
	}
	return len(after.Anomalies) > len(before.Anomalies), nil
}

func (s *Service) reportAnomalies(ctx context.Context, log *zap.Logger, anomalies []domain.Anomaly) {
	for _, anomaly := range anomalies {
		s.obsMetrics.RecordAnomaly(ctx, string(anomaly.Kind))
		log.Warn("payment event queued for review",
			zap.String("kind", string(anomaly.Kind)),
			zap.String("event_id", anomaly.EventID.String()),
			zap.Error(domain.ErrReconciliationAnomaly),
		)
	}
}

func (s *Service) findPayment(ctx context.Context, id string) (*domain.Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidPayment
	}
	payment, err := s.repo.FindPayment(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func normalizeOpenRequest(req domain.OpenRequest) (domain.OpenRequest, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.VenueID = strings.TrimSpace(req.VenueID)
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	req.ProviderOrderID = strings.TrimSpace(req.ProviderOrderID)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	switch {
	case req.BookingID == "", req.VenueID == "", req.ProviderOrderID == "":
		return req, domain.ErrInvalidPayment
	case req.Provider == "":
		return req, domain.ErrInvalidProvider
	case req.Amount <= 0:
		return req, domain.ErrInvalidAmount
	case len(req.Currency) != 3:
		return req, domain.ErrInvalidCurrency
	}
	return req, nil
}

func normalizeRecordRequest(req domain.RecordRequest) (domain.RecordRequest, error) {
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.EventType = strings.ToLower(strings.TrimSpace(req.EventType))
	req.ProviderEventID = strings.TrimSpace(req.ProviderEventID)
	req.Source = domain.Source(strings.ToLower(strings.TrimSpace(string(req.Source))))

	if req.PaymentID == "" {
		return req, domain.ErrInvalidPayment
	}
	if req.EventType == "" {
		return req, domain.ErrInvalidEvent
	}
	if req.Source != domain.SourceWebhook && req.Source != domain.SourcePoll {
		return req, domain.ErrInvalidSource
	}
	if len(req.Payload) == 0 {
		req.Payload = []byte("{}")
	}
	if !json.Valid(req.Payload) {
		return req, domain.ErrInvalidPayload
	}
	return req, nil
}

func pollPayload(raw []byte) []byte {
	if len(raw) > 0 && json.Valid(raw) {
		return raw
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(raw)})
	if err != nil {
		return []byte("{}")
	}
	return wrapped
}

func anomalyDetail(kind domain.AnomalyKind) string {
	switch kind {
	case domain.AnomalySuccessAfterFailure:
		return "success reported after the payment failed; refund or reopen manually"
	case domain.AnomalyRefundBeforeCapture:
		return "refund reported before any capture"
	default:
		return string(kind)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return defaultListLimit
	}
	return limit
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
