package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/picklepickle/picklepay/internal/audit/domain"
	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	ledgerdomain "github.com/picklepickle/picklepay/internal/ledger/domain"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	accountdomain "github.com/picklepickle/picklepay/internal/provideraccount/domain"
	"github.com/picklepickle/picklepay/internal/split/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTransferableLimit = 100

var errSplitsRaced = errors.New("splits_raced")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Accounts   accountdomain.Service
	LedgerSvc  ledgerdomain.Service
	Fees       *config.FeePolicyHolder
	Clock      clock.Clock         `optional:"true"`
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	accounts   accountdomain.Service
	ledgerSvc  ledgerdomain.Service
	fees       *config.FeePolicyHolder
	clock      clock.Clock
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("split.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		accounts:   p.Accounts,
		ledgerSvc:  p.LedgerSvc,
		fees:       p.Fees,
		clock:      c,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// ComputeSplits divides a captured payment between the venue and the platform.
// Existing splits are returned unchanged, so the call is safe to repeat.
func (s *Service) ComputeSplits(ctx context.Context, req domain.SplitRequest) ([]domain.PaymentSplit, error) {
	req, err := normalizeSplitRequest(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByPayment(ctx, s.db, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	policy := s.fees.Get()
	platformAccount := strings.TrimSpace(policy.PlatformAccountID)
	if platformAccount == "" {
		return nil, domain.ErrInvalidFeePolicy
	}
	alloc, err := domain.Allocate(req.CapturedAmount, policy.RuleFor(req.Provider))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	occurredAt := req.CapturedAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accounts.ResolveTx(ctx, tx, req.VenueID, req.Provider)
		if err != nil {
			if errors.Is(err, accountdomain.ErrNotFound) {
				return fmt.Errorf("%w: venue %s has no %s account", domain.ErrNoActiveDestinationAccount, req.VenueID, req.Provider)
			}
			return err
		}
		if !account.CanReceiveSplits() {
			return fmt.Errorf("%w: %s account for venue %s is %s", domain.ErrNoActiveDestinationAccount, req.Provider, req.VenueID, account.Status)
		}

		rows := []domain.PaymentSplit{
			{
				ID:            s.genID.Generate(),
				PaymentID:     req.PaymentID,
				DestType:      domain.DestTypeVenue,
				DestAccountID: account.AccountID,
				Amount:        alloc.VenueAmount,
				FeeAmount:     alloc.VenueFee,
				Currency:      req.Currency,
				Status:        domain.SplitStatusPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			},
			{
				ID:            s.genID.Generate(),
				PaymentID:     req.PaymentID,
				DestType:      domain.DestTypePlatform,
				DestAccountID: platformAccount,
				Amount:        alloc.PlatformFee,
				Currency:      req.Currency,
				Status:        domain.SplitStatusPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			},
		}
		for _, row := range rows {
			inserted, err := s.repo.Insert(ctx, tx, row)
			if err != nil {
				return err
			}
			if !inserted {
				return errSplitsRaced
			}
		}

		_, err = s.ledgerSvc.CreateEntryTx(ctx, tx, ledgerdomain.CreateEntryRequest{
			SourceType: ledgerdomain.SourceTypeSplit,
			SourceID:   req.PaymentID,
			Currency:   req.Currency,
			OccurredAt: occurredAt,
			Lines: []ledgerdomain.PostingLine{
				{AccountCode: ledgerdomain.AccountCodeProviderClearing, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: req.CapturedAmount},
				{AccountCode: ledgerdomain.AccountCodeVenuePayable, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: alloc.VenueAmount},
				{AccountCode: ledgerdomain.AccountCodePlatformRevenue, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: alloc.PlatformFee},
			},
		})
		return err
	})
	if errors.Is(err, errSplitsRaced) {
		s.log.Debug("splits created concurrently", zap.String("payment_id", req.PaymentID))
		return s.repo.ListByPayment(ctx, s.db, req.PaymentID)
	}
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordSplit(ctx, req.Provider)
	s.obsMetrics.RecordLedgerEntry(ctx, string(ledgerdomain.SourceTypeSplit))
	s.log.Info("payment split computed",
		zap.String("payment_id", req.PaymentID),
		zap.String("provider", req.Provider),
		zap.Int64("amount", req.CapturedAmount),
		zap.Int64("venue_amount", alloc.VenueAmount),
		zap.Int64("platform_fee", alloc.PlatformFee),
	)
	return s.repo.ListByPayment(ctx, s.db, req.PaymentID)
}

func (s *Service) ListByPayment(ctx context.Context, paymentID string) ([]domain.PaymentSplit, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, domain.ErrInvalidPayment
	}
	return s.repo.ListByPayment(ctx, s.db, paymentID)
}

func (s *Service) ListTransferable(ctx context.Context, limit int) ([]domain.PaymentSplit, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultTransferableLimit
	}
	return s.repo.ListTransferable(ctx, s.db, limit)
}

func (s *Service) RecordTransfer(ctx context.Context, splitID snowflake.ID, providerTransferID string) (*domain.PaymentSplit, error) {
	providerTransferID = strings.TrimSpace(providerTransferID)
	if providerTransferID == "" {
		return nil, domain.ErrInvalidTransferID
	}

	split, err := s.findSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split.Status == domain.SplitStatusTransferred {
		if split.ProviderTransferID != nil && *split.ProviderTransferID == providerTransferID {
			return split, nil
		}
		return nil, domain.ErrInvalidTransition
	}
	if !domain.CanTransition(split.Status, domain.SplitStatusTransferred) {
		return nil, domain.ErrInvalidTransition
	}

	if split.DestType == domain.DestTypeVenue {
		account, err := s.accounts.Resolve(ctx, split.VenueID, split.Provider)
		if err != nil {
			if errors.Is(err, accountdomain.ErrNotFound) {
				return nil, domain.ErrKycNotVerified
			}
			return nil, err
		}
		if !account.CanReceiveTransfers() {
			return nil, domain.ErrKycNotVerified
		}
	}

	updated, err := s.repo.MarkTransferred(ctx, s.db, splitID, providerTransferID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrInvalidTransition
	}

	s.audit(ctx, "payment_split.transferred", splitID, map[string]any{
		"payment_id":           split.PaymentID,
		"dest_type":            string(split.DestType),
		"provider_transfer_id": providerTransferID,
	})
	return s.findSplit(ctx, splitID)
}

func (s *Service) RecordTransferFailure(ctx context.Context, splitID snowflake.ID, reason string) (*domain.PaymentSplit, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unspecified"
	}

	split, err := s.findSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(split.Status, domain.SplitStatusFailed) {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.repo.MarkFailed(ctx, s.db, splitID, reason, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrInvalidTransition
	}

	s.log.Warn("payout transfer failed",
		zap.String("payment_id", split.PaymentID),
		zap.String("split_id", splitID.String()),
		zap.String("reason", reason),
	)
	s.audit(ctx, "payment_split.transfer_failed", splitID, map[string]any{
		"payment_id": split.PaymentID,
		"dest_type":  string(split.DestType),
		"reason":     reason,
	})
	return s.findSplit(ctx, splitID)
}

func (s *Service) ReverseForRefund(ctx context.Context, paymentID string, refundedAt time.Time) (bool, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return false, domain.ErrInvalidPayment
	}

	entry, lines, err := s.ledgerSvc.FindEntry(ctx, ledgerdomain.SourceTypeSplit, paymentID)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrEntryNotFound) {
			return false, nil
		}
		return false, err
	}
	if refundedAt.IsZero() {
		refundedAt = s.clock.Now().UTC()
	}

	created, err := s.ledgerSvc.CreateEntry(ctx, ledgerdomain.CreateEntryRequest{
		SourceType: ledgerdomain.SourceTypeRefund,
		SourceID:   paymentID,
		Currency:   entry.Currency,
		OccurredAt: refundedAt,
		Lines:      ledgerdomain.Reverse(lines),
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info("refund reversal posted", zap.String("payment_id", paymentID))
	}
	return created, nil
}

func (s *Service) findSplit(ctx context.Context, splitID snowflake.ID) (*domain.PaymentSplit, error) {
	if splitID == 0 {
		return nil, domain.ErrSplitNotFound
	}
	split, err := s.repo.Find(ctx, s.db, splitID)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, domain.ErrSplitNotFound
	}
	return split, nil
}

func (s *Service) audit(ctx context.Context, action string, splitID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypePayout,
		Action:     action,
		TargetType: auditdomain.TargetPaymentSplit,
		TargetID:   splitID.String(),
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func normalizeSplitRequest(req domain.SplitRequest) (domain.SplitRequest, error) {
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	if req.PaymentID == "" {
		return req, domain.ErrInvalidPayment
	}
	if req.CapturedAmount <= 0 {
		return req, domain.ErrInvalidAmount
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		return req, domain.ErrInvalidCurrency
	}
	req.VenueID = strings.TrimSpace(req.VenueID)
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if req.VenueID == "" || req.Provider == "" {
		return req, domain.ErrNoActiveDestinationAccount
	}
	return req, nil
}
