package split

import (
	"github.com/picklepickle/picklepay/internal/split/repository"
	"github.com/picklepickle/picklepay/internal/split/service"
	"go.uber.org/fx"
)

var Module = fx.Module("split.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
