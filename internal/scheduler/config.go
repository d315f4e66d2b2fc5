package scheduler

import (
	"time"

	"github.com/picklepickle/picklepay/internal/config"
)

const (
	JobPollPending     = "poll_pending"
	JobAdvanceCaptured = "advance_captured"
	JobRenderInvoices  = "render_invoices"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval    time.Duration
	BatchSize      int
	Concurrency    int
	PollTimeout    time.Duration
	AdvanceTimeout time.Duration
	RenderTimeout  time.Duration
	// EnabledJobs limits which jobs run; empty enables all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    time.Minute,
		BatchSize:      50,
		Concurrency:    4,
		PollTimeout:    45 * time.Second,
		AdvanceTimeout: 30 * time.Second,
		RenderTimeout:  2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.SchedulerInterval,
		BatchSize:   cfg.SchedulerBatchSize,
		EnabledJobs: cfg.SchedulerEnabledJobs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaults.PollTimeout
	}
	if c.AdvanceTimeout <= 0 {
		c.AdvanceTimeout = defaults.AdvanceTimeout
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = defaults.RenderTimeout
	}
	return c
}
