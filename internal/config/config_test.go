package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadWebhookRateLimit(t *testing.T) {
	t.Setenv("WEBHOOK_RATE_LIMIT", "2.5")
	t.Setenv("WEBHOOK_RATE_BURST", "")
	cfg := Load()
	assert.InDelta(t, 2.5, cfg.WebhookRateLimit, 1e-9)
	assert.Equal(t, 20, cfg.WebhookRateBurst)
}

func TestGetenvFallbacks(t *testing.T) {
	t.Setenv("PP_TEST_FLOAT", "abc")
	t.Setenv("PP_TEST_DURATION", "-5s")
	t.Setenv("PP_TEST_INT", "12")
	assert.InDelta(t, 1.5, getenvFloat("PP_TEST_FLOAT", 1.5), 1e-9)
	assert.Equal(t, time.Minute, getenvDuration("PP_TEST_DURATION", time.Minute))
	assert.Equal(t, 12, getenvInt("PP_TEST_INT", 0))
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"poll_pending", "render_invoices"}, parseList(" poll_pending, ,render_invoices "))
	assert.Empty(t, parseList(""))
}

func TestLoadTelemetryFollowsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP/protobuf")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")

	cfg := Load()
	assert.True(t, cfg.Telemetry.Export)
	assert.Equal(t, "http/protobuf", cfg.Telemetry.Protocol)

	t.Setenv("OTEL_ENABLED", "off")
	assert.False(t, Load().Telemetry.Export)
}
