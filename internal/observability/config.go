package observability

import (
	"strings"

	"github.com/picklepickle/picklepay/internal/config"
)

// Config is the service identity and telemetry settings shared by the
// logger, tracer and meter providers.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Endpoint    string
	Telemetry   config.TelemetryConfig
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "picklepay"
	}
	return Config{
		ServiceName: name,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		Endpoint:    strings.TrimSpace(cfg.OTLPEndpoint),
		Telemetry:   cfg.Telemetry,
	}
}

// Debug reports whether request bodies, stack traces and gin debug mode are on.
func (c Config) Debug() bool {
	if c.Telemetry.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
