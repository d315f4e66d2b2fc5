package observability

import (
	"testing"

	"github.com/picklepickle/picklepay/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName:     "picklepay-api",
		Environment: "development",
		AppVersion:  "1.2.3",
		Telemetry:   config.TelemetryConfig{LogLevel: "info"},
	})

	assert.Equal(t, "picklepay-api", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.False(t, cfg.Telemetry.Export)
	assert.True(t, cfg.Debug())
}

func TestLoadConfigProduction(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "production",
		Telemetry:   config.TelemetryConfig{LogLevel: "info", Export: true},
	})

	assert.Equal(t, "picklepay", cfg.ServiceName)
	assert.True(t, cfg.Telemetry.Export)
	assert.False(t, cfg.Debug())

	cfg.Telemetry.LogLevel = "debug"
	assert.True(t, cfg.Debug())
}
