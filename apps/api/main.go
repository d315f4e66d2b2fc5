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
	"github.com/picklepickle/picklepay/internal/server"
	"github.com/picklepickle/picklepay/internal/split"
	"github.com/picklepickle/picklepay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		paymentlock.Module,
		ratelimit.Module,

		audit.Module,
		ledger.Module,
		provideraccount.Module,
		split.Module,
		invoice.Module,
		payment.Module,

		server.Module,
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
