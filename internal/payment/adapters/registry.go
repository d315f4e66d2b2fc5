package adapters

import (
	"strings"

	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/payment/adapters/gateway"
	"github.com/picklepickle/picklepay/internal/payment/adapters/momo"
	"github.com/picklepickle/picklepay/internal/payment/adapters/vnpay"
	"github.com/picklepickle/picklepay/internal/payment/adapters/zalopay"
	"github.com/picklepickle/picklepay/internal/payment/domain"
)

// Registry looks up webhook adapters and status queriers by provider name.
type Registry struct {
	adapters map[string]domain.Adapter
	queriers map[string]domain.StatusQuerier
}

// NewRegistry registers each adapter, and its status querier when it has one.
func NewRegistry(adapters ...domain.Adapter) *Registry {
	registry := &Registry{
		adapters: map[string]domain.Adapter{},
		queriers: map[string]domain.StatusQuerier{},
	}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		provider := normalize(adapter.Provider())
		if provider == "" {
			continue
		}
		registry.adapters[provider] = adapter
		if querier, ok := adapter.(domain.StatusQuerier); ok {
			registry.queriers[provider] = querier
		}
	}
	return registry
}

// WithQuerier replaces the status querier for its provider.
func (r *Registry) WithQuerier(querier domain.StatusQuerier) *Registry {
	if querier != nil {
		r.queriers[normalize(querier.Provider())] = querier
	}
	return r
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.adapters[normalize(provider)]
	return ok
}

func (r *Registry) Adapter(provider string) (domain.Adapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	adapter, ok := r.adapters[normalize(provider)]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return adapter, nil
}

func (r *Registry) Querier(provider string) (domain.StatusQuerier, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	querier, ok := r.queriers[normalize(provider)]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return querier, nil
}

// Provide builds the registry for the configured providers.
func Provide(cfg config.Config, clk clock.Clock) *Registry {
	client := gateway.NewHTTPClient()
	return NewRegistry(
		momo.New(cfg.MoMo, client),
		vnpay.New(cfg.VNPay, client, clk),
		zalopay.New(cfg.ZaloPay, client),
	)
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
