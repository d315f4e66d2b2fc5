package ledger

import (
	"github.com/picklepickle/picklepay/internal/ledger/repository"
	"github.com/picklepickle/picklepay/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
