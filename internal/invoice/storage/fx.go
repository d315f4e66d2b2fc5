package storage

import (
	"context"
	"fmt"

	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// New selects the document store named by INVOICE_STORAGE.
func New(p Params) (domain.DocumentStore, error) {
	log := p.Log.Named("invoice.storage")
	switch p.Cfg.Invoice.Storage {
	case config.StorageS3:
		return NewS3Store(context.Background(), p.Cfg.Invoice, log)
	case config.StorageLocal, "":
		log.Info("invoice documents stored on local disk", zap.String("dir", p.Cfg.Invoice.LocalDir))
		return NewLocalStore(nil, p.Cfg.Invoice.LocalDir, p.Cfg.Invoice.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("%w: unknown INVOICE_STORAGE %q", domain.ErrStorageNotConfigured, p.Cfg.Invoice.Storage)
	}
}
