package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/invoice/domain"
	invoiceformat "github.com/picklepickle/picklepay/internal/invoice/format"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sequenceScope    = "invoice"
	maxIssueAttempts = 5
	defaultListLimit = 50
)

// errNumberTaken ends an attempt whose number collided but whose sequence bump must commit.
var errNumberTaken = errors.New("invoice_number_taken")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Cfg        config.Config
	Renderer   domain.Renderer      `optional:"true"`
	Store      domain.DocumentStore `optional:"true"`
	Clock      clock.Clock          `optional:"true"`
	ObsMetrics *obsmetrics.Metrics  `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	template   string
	renderer   domain.Renderer
	store      domain.DocumentStore
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) (domain.Service, error) {
	template := strings.TrimSpace(p.Cfg.Invoice.NumberTemplate)
	if template == "" {
		template = invoiceformat.DefaultInvoiceNumberTemplate
	}
	if err := invoiceformat.ValidateTemplate(template); err != nil {
		return nil, err
	}
	c := p.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		template:   template,
		renderer:   p.Renderer,
		store:      p.Store,
		clock:      c,
		obsMetrics: p.ObsMetrics,
	}, nil
}

func (s *Service) IssueInvoice(ctx context.Context, req domain.IssueRequest) (*domain.Invoice, error) {
	req, err := normalizeIssueRequest(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPayment(ctx, s.db, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		invoice, created, err := s.tryIssue(ctx, req)
		if errors.Is(err, errNumberTaken) {
			s.log.Warn("invoice number already used, allocating another",
				zap.String("payment_id", req.PaymentID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		if created {
			s.obsMetrics.RecordInvoice(ctx)
			s.log.Info("invoice issued",
				zap.String("payment_id", invoice.PaymentID),
				zap.String("number", invoice.Number),
			)
		}
		return invoice, nil
	}
	return nil, fmt.Errorf("%w: payment %s after %d attempts", domain.ErrInvoiceNumberExhausted, req.PaymentID, maxIssueAttempts)
}

// tryIssue allocates one number and inserts the invoice. A payment that was
// invoiced concurrently rolls back and returns the stored invoice.
func (s *Service) tryIssue(ctx context.Context, req domain.IssueRequest) (*domain.Invoice, bool, error) {
	var (
		result  *domain.Invoice
		created bool
		taken   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now().UTC()
		seq, err := s.repo.NextSequence(ctx, tx, sequenceScope)
		if err != nil {
			return err
		}
		number, err := invoiceformat.FormatInvoiceNumber(s.template, now, seq)
		if err != nil {
			return err
		}

		invoice := domain.Invoice{
			ID:        s.genID.Generate(),
			PaymentID: req.PaymentID,
			BookingID: req.BookingID,
			Number:    number,
			Amount:    req.Amount,
			Currency:  req.Currency,
			IssuedAt:  now,
			CreatedAt: now,
		}
		inserted, err := s.repo.Insert(ctx, tx, invoice)
		if err != nil {
			return err
		}
		if inserted {
			result = &invoice
			created = true
			return nil
		}

		existing, err := s.repo.FindByPayment(ctx, tx, req.PaymentID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return domain.ErrInvoiceNumberConflict
		}
		// The number belongs to another payment. Keep the sequence bump so the next attempt moves on.
		taken = true
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrInvoiceNumberConflict) && result != nil:
		return result, false, nil
	case err != nil:
		return nil, false, err
	case taken:
		return nil, false, errNumberTaken
	}
	return result, created, nil
}

func (s *Service) FindByPayment(ctx context.Context, paymentID string) (*domain.Invoice, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, domain.ErrInvalidPayment
	}
	invoice, err := s.repo.FindByPayment(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) ListUnrendered(ctx context.Context, limit int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListUnrendered(ctx, s.db, limit)
}

func (s *Service) RenderDocument(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	if s.renderer == nil || s.store == nil {
		return nil, domain.ErrStorageNotConfigured
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	if invoice.FileURL != nil {
		return invoice, nil
	}

	body, err := s.renderer.Render(ctx, *invoice)
	if err != nil {
		return nil, err
	}
	url, err := s.store.Put(ctx, domain.Document{
		Key:         DocumentKey(*invoice),
		ContentType: "application/pdf",
		Body:        body,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetFileURL(ctx, s.db, invoice.ID, url)
	if err != nil {
		return nil, err
	}
	if !updated {
		s.log.Info("invoice rendered concurrently, keeping stored url", zap.String("number", invoice.Number))
		return s.repo.FindByID(ctx, s.db, id)
	}

	invoice.FileURL = &url
	s.log.Info("invoice document stored",
		zap.String("number", invoice.Number),
		zap.String("file_url", url),
	)
	return invoice, nil
}

// DocumentKey places the document under its issue month with a unique suffix.
func DocumentKey(invoice domain.Invoice) string {
	issued := invoice.IssuedAt.UTC()
	return fmt.Sprintf("invoices/%s/%s/%s-%s.pdf",
		issued.Format("2006"),
		issued.Format("01"),
		slug.Make(invoice.Number),
		strings.ToLower(ulid.Make().String()),
	)
}

func normalizeIssueRequest(req domain.IssueRequest) (domain.IssueRequest, error) {
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	if req.PaymentID == "" {
		return req, domain.ErrInvalidPayment
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		return req, domain.ErrInvalidBooking
	}
	if req.Amount <= 0 {
		return req, domain.ErrInvalidAmount
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		return req, domain.ErrInvalidCurrency
	}
	return req, nil
}
