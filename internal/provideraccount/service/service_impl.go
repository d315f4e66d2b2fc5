package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/picklepickle/picklepay/internal/audit/domain"
	auditmasking "github.com/picklepickle/picklepay/internal/audit/masking"
	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/provideraccount/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Clock    clock.Clock         `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("provideraccount.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    c,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Bind(ctx context.Context, req domain.BindRequest) (*domain.VenueProviderAccount, error) {
	venueID, provider, err := normalizeKey(req.VenueID, req.Provider)
	if err != nil {
		return nil, err
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccountID
	}

	status := domain.AccountStatusActive
	if req.Status != "" {
		parsed, ok := domain.ParseAccountStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
		if !ok {
			return nil, domain.ErrInvalidStatus
		}
		status = parsed
	}
	kyc := domain.KycStatusPending
	if req.KycStatus != "" {
		parsed, ok := domain.ParseKycStatus(strings.ToUpper(strings.TrimSpace(string(req.KycStatus))))
		if !ok {
			return nil, domain.ErrInvalidKycStatus
		}
		kyc = parsed
	}

	now := s.clock.Now().UTC()
	account := domain.VenueProviderAccount{
		ID:        s.genID.Generate(),
		VenueID:   venueID,
		Provider:  provider,
		AccountID: accountID,
		Status:    status,
		KycStatus: kyc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, account); err != nil {
		return nil, err
	}

	s.log.Info("provider account bound",
		zap.String("venue_id", venueID),
		zap.String("provider", provider),
		zap.String("status", string(status)),
	)
	s.audit(ctx, "provider_account.bind", account, map[string]any{
		"account_id": accountID,
		"status":     string(status),
		"kyc_status": string(kyc),
	})
	return &account, nil
}

func (s *Service) Resolve(ctx context.Context, venueID, provider string) (*domain.VenueProviderAccount, error) {
	return s.ResolveTx(ctx, s.db, venueID, provider)
}

// ResolveTx reads the binding through tx so callers see it inside their own transaction.
func (s *Service) ResolveTx(ctx context.Context, tx *gorm.DB, venueID, provider string) (*domain.VenueProviderAccount, error) {
	venueID, provider, err := normalizeKey(venueID, provider)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.Find(ctx, tx, venueID, provider)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *Service) SetStatus(ctx context.Context, venueID, provider string, status domain.AccountStatus) (*domain.VenueProviderAccount, error) {
	venueID, provider, err := normalizeKey(venueID, provider)
	if err != nil {
		return nil, err
	}
	parsed, ok := domain.ParseAccountStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if !ok {
		return nil, domain.ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, s.db, venueID, provider, parsed, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}

	account, err := s.Resolve(ctx, venueID, provider)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "provider_account.status_update", *account, map[string]any{
		"status": string(parsed),
	})
	return account, nil
}

func (s *Service) SetKycStatus(ctx context.Context, venueID, provider string, kyc domain.KycStatus) (*domain.VenueProviderAccount, error) {
	venueID, provider, err := normalizeKey(venueID, provider)
	if err != nil {
		return nil, err
	}
	parsed, ok := domain.ParseKycStatus(strings.ToUpper(strings.TrimSpace(string(kyc))))
	if !ok {
		return nil, domain.ErrInvalidKycStatus
	}

	updated, err := s.repo.UpdateKycStatus(ctx, s.db, venueID, provider, parsed, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}

	account, err := s.Resolve(ctx, venueID, provider)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "provider_account.kyc_update", *account, map[string]any{
		"kyc_status": string(parsed),
	})
	return account, nil
}

func (s *Service) List(ctx context.Context, venueID string) ([]domain.VenueProviderAccount, error) {
	venueID = strings.TrimSpace(venueID)
	if venueID == "" {
		return nil, domain.ErrInvalidVenue
	}
	return s.repo.ListByVenue(ctx, s.db, venueID)
}

func (s *Service) audit(ctx context.Context, action string, account domain.VenueProviderAccount, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata["venue_id"] = account.VenueID
	metadata["provider"] = account.Provider
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: auditdomain.TargetProviderAccount,
		TargetID:   account.ID.String(),
		Metadata:   auditmasking.MaskFields(metadata, "account_id"),
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func normalizeKey(venueID, provider string) (string, string, error) {
	venueID = strings.TrimSpace(venueID)
	if venueID == "" {
		return "", "", domain.ErrInvalidVenue
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", "", domain.ErrInvalidProvider
	}
	return venueID, provider, nil
}
