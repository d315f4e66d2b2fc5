package audit

import (
	"github.com/picklepickle/picklepay/internal/audit/repository"
	"github.com/picklepickle/picklepay/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
