package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/picklepickle/picklepay/internal/clock"
	ledgerdomain "github.com/picklepickle/picklepay/internal/ledger/domain"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       ledgerdomain.Repository
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       ledgerdomain.Repository
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      c,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateEntry(ctx context.Context, req ledgerdomain.CreateEntryRequest) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.CreateEntryTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return false, err
	}
	if created {
		s.obsMetrics.RecordLedgerEntry(ctx, string(req.SourceType))
	}
	return created, nil
}

func (s *Service) CreateEntryTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.CreateEntryRequest) (bool, error) {
	normalized, err := normalizeRequest(req)
	if err != nil {
		return false, err
	}

	now := s.clock.Now().UTC()
	accountIDs := map[ledgerdomain.LedgerAccountCode]snowflake.ID{}
	for _, line := range normalized.Lines {
		if _, ok := accountIDs[line.AccountCode]; ok {
			continue
		}
		name, _ := ledgerdomain.AccountName(line.AccountCode)
		account, err := s.repo.EnsureAccount(ctx, tx, ledgerdomain.LedgerAccount{
			ID:        s.genID.Generate(),
			Code:      line.AccountCode,
			Name:      name,
			CreatedAt: now,
		})
		if err != nil {
			return false, err
		}
		accountIDs[line.AccountCode] = account.ID
	}

	entryID := s.genID.Generate()
	inserted, err := s.repo.InsertEntry(ctx, tx, ledgerdomain.LedgerEntry{
		ID:         entryID,
		SourceType: normalized.SourceType,
		SourceID:   normalized.SourceID,
		Currency:   normalized.Currency,
		OccurredAt: normalized.OccurredAt.UTC(),
		CreatedAt:  now,
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(normalized.SourceType)),
			zap.String("source_id", normalized.SourceID),
		)
		return false, nil
	}

	for _, line := range normalized.Lines {
		if err := s.repo.InsertLine(ctx, tx, ledgerdomain.LedgerEntryLine{
			ID:            s.genID.Generate(),
			LedgerEntryID: entryID,
			AccountID:     accountIDs[line.AccountCode],
			Direction:     line.Direction,
			Amount:        line.Amount,
			CreatedAt:     now,
		}); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *Service) FindEntry(ctx context.Context, sourceType ledgerdomain.LedgerSourceType, sourceID string) (*ledgerdomain.LedgerEntry, []ledgerdomain.LedgerEntryLine, error) {
	entry, err := s.repo.FindEntry(ctx, s.db, sourceType, strings.TrimSpace(sourceID))
	if err != nil {
		return nil, nil, err
	}
	if entry == nil {
		return nil, nil, ledgerdomain.ErrEntryNotFound
	}
	lines, err := s.repo.ListLines(ctx, s.db, int64(entry.ID))
	if err != nil {
		return nil, nil, err
	}
	return entry, lines, nil
}

func (s *Service) AccountBalance(ctx context.Context, code ledgerdomain.LedgerAccountCode, currency string) (int64, error) {
	return s.repo.AccountBalance(ctx, s.db, code, strings.ToUpper(strings.TrimSpace(currency)))
}

func normalizeRequest(req ledgerdomain.CreateEntryRequest) (ledgerdomain.CreateEntryRequest, error) {
	switch req.SourceType {
	case ledgerdomain.SourceTypeSplit, ledgerdomain.SourceTypeRefund:
	default:
		return req, ledgerdomain.ErrInvalidSourceType
	}

	req.SourceID = strings.TrimSpace(req.SourceID)
	if req.SourceID == "" {
		return req, ledgerdomain.ErrInvalidSourceID
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		return req, ledgerdomain.ErrInvalidCurrency
	}
	if req.OccurredAt.IsZero() {
		return req, ledgerdomain.ErrInvalidOccurredAt
	}

	lines := make([]ledgerdomain.PostingLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if _, ok := ledgerdomain.AccountName(line.AccountCode); !ok {
			return req, ledgerdomain.ErrInvalidAccount
		}
		direction, err := normalizeDirection(line.Direction)
		if err != nil {
			return req, err
		}
		line.Direction = direction
		lines = append(lines, line)
	}
	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return req, err
	}
	req.Lines = lines
	return req, nil
}

func normalizeDirection(direction ledgerdomain.LedgerEntryDirection) (ledgerdomain.LedgerEntryDirection, error) {
	switch strings.ToLower(strings.TrimSpace(string(direction))) {
	case string(ledgerdomain.LedgerEntryDirectionDebit):
		return ledgerdomain.LedgerEntryDirectionDebit, nil
	case string(ledgerdomain.LedgerEntryDirectionCredit):
		return ledgerdomain.LedgerEntryDirectionCredit, nil
	default:
		return "", ledgerdomain.ErrInvalidLineDirection
	}
}
