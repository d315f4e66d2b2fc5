package provideraccount

import (
	"github.com/picklepickle/picklepay/internal/provideraccount/repository"
	"github.com/picklepickle/picklepay/internal/provideraccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("provideraccount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
