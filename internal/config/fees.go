package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FeeRule is the platform commission applied to one captured payment.
type FeeRule struct {
	PercentBps     int64 `mapstructure:"percent_bps"`
	FixedAmount    int64 `mapstructure:"fixed_amount"`
	ProviderFeeBps int64 `mapstructure:"provider_fee_bps"`
}

type FeePolicy struct {
	PlatformAccountID string             `mapstructure:"platform_account_id"`
	Default           FeeRule            `mapstructure:"default"`
	Providers         map[string]FeeRule `mapstructure:"providers"`
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		PlatformAccountID: "picklepickle",
		Default:           FeeRule{PercentBps: 500},
	}
}

// RuleFor returns the provider override when one is configured.
func (p FeePolicy) RuleFor(provider string) FeeRule {
	if rule, ok := p.Providers[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return rule
	}
	return p.Default
}

type FeePolicyHolder struct {
	current atomic.Value // holds FeePolicy
}

// NewFeePolicyHolder loads fees.yml from the standard config paths and
// reloads it on change. A missing file falls back to DefaultFeePolicy.
func NewFeePolicyHolder() (*FeePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/picklepay/config")
	v.AddConfigPath("/etc/picklepay")
	v.AddConfigPath(".")

	return newFeePolicyHolder(v, true)
}

// NewFeePolicyHolderFromFile reads a specific policy file without watching it.
func NewFeePolicyHolderFromFile(path string) (*FeePolicyHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yml")
	return newFeePolicyHolder(v, false)
}

func NewStaticFeePolicyHolder(policy FeePolicy) *FeePolicyHolder {
	holder := &FeePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func newFeePolicyHolder(v *viper.Viper, watch bool) (*FeePolicyHolder, error) {
	v.SetEnvPrefix("PICKLEPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFeePolicy()
	v.SetDefault("fees.platform_account_id", defaults.PlatformAccountID)
	v.SetDefault("fees.default.percent_bps", defaults.Default.PercentBps)
	v.SetDefault("fees.default.fixed_amount", defaults.Default.FixedAmount)
	v.SetDefault("fees.default.provider_fee_bps", defaults.Default.ProviderFeeBps)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	policy, err := readFeePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticFeePolicyHolder(policy)

	if watch && fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readFeePolicy(v)
			if err != nil {
				zap.L().Warn("fee policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			zap.L().Info("fee policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *FeePolicyHolder) Get() FeePolicy {
	return h.current.Load().(FeePolicy)
}

func readFeePolicy(v *viper.Viper) (FeePolicy, error) {
	var policy FeePolicy
	if err := v.UnmarshalKey("fees", &policy); err != nil {
		return FeePolicy{}, err
	}
	if err := validateFeePolicy(policy); err != nil {
		return FeePolicy{}, err
	}
	return policy, nil
}

func validateFeePolicy(policy FeePolicy) error {
	if strings.TrimSpace(policy.PlatformAccountID) == "" {
		return errors.New("fees.platform_account_id cannot be empty")
	}
	if err := validateFeeRule("fees.default", policy.Default); err != nil {
		return err
	}
	for provider, rule := range policy.Providers {
		if err := validateFeeRule("fees.providers."+provider, rule); err != nil {
			return err
		}
	}
	return nil
}

func validateFeeRule(key string, rule FeeRule) error {
	if rule.PercentBps < 0 || rule.PercentBps > 10_000 {
		return fmt.Errorf("%s.percent_bps must be within [0, 10000]", key)
	}
	if rule.ProviderFeeBps < 0 || rule.ProviderFeeBps > 10_000 {
		return fmt.Errorf("%s.provider_fee_bps must be within [0, 10000]", key)
	}
	if rule.FixedAmount < 0 {
		return fmt.Errorf("%s.fixed_amount cannot be negative", key)
	}
	return nil
}
