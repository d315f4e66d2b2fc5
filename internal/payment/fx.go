package payment

import (
	"github.com/picklepickle/picklepay/internal/payment/adapters"
	"github.com/picklepickle/picklepay/internal/payment/domain"
	"github.com/picklepickle/picklepay/internal/payment/repository"
	paymentservice "github.com/picklepickle/picklepay/internal/payment/service"
	"github.com/picklepickle/picklepay/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(adapters.Provide),
	fx.Provide(func(r *adapters.Registry) domain.AdapterSource { return r }),
	fx.Provide(func(r *adapters.Registry) domain.QuerierSource { return r }),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
