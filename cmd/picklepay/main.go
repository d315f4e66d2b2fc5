package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/picklepickle/picklepay/internal/audit"
	"github.com/picklepickle/picklepay/internal/clock"
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/invoice"
	"github.com/picklepickle/picklepay/internal/ledger"
	"github.com/picklepickle/picklepay/internal/migration"
	"github.com/picklepickle/picklepay/internal/observability"
	"github.com/picklepickle/picklepay/internal/payment"
	"github.com/picklepickle/picklepay/internal/paymentlock"
	"github.com/picklepickle/picklepay/internal/provideraccount"
	"github.com/picklepickle/picklepay/internal/ratelimit"
	"github.com/picklepickle/picklepay/internal/scheduler"
	"github.com/picklepickle/picklepay/internal/server"
	"github.com/picklepickle/picklepay/internal/split"
	"github.com/picklepickle/picklepay/pkg/db"
	"go.uber.org/fx"
)

// Monolith: HTTP API and reconciliation scheduler in one process.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		paymentlock.Module,
		ratelimit.Module,

		// Functional Domains
		audit.Module,
		ledger.Module,
		provideraccount.Module,
		split.Module,
		invoice.Module,
		payment.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
