package invoice

import (
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/invoice/domain"
	"github.com/picklepickle/picklepay/internal/invoice/render"
	"github.com/picklepickle/picklepay/internal/invoice/repository"
	"github.com/picklepickle/picklepay/internal/invoice/service"
	"github.com/picklepickle/picklepay/internal/invoice/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) domain.Renderer {
		return render.NewPDFRenderer(cfg.Invoice.SellerName)
	}),
	fx.Provide(storage.New),
	fx.Provide(service.NewService),
)
