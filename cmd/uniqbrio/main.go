package main

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/apikey"
	"github.com/UniqBrio/UniqBrio-sub017/internal/audit"
	"github.com/UniqBrio/UniqBrio-sub017/internal/clock"
	"github.com/UniqBrio/UniqBrio-sub017/internal/config"
	"github.com/UniqBrio/UniqBrio-sub017/internal/events"
	"github.com/UniqBrio/UniqBrio-sub017/internal/ingest"
	"github.com/UniqBrio/UniqBrio-sub017/internal/ledger"
	"github.com/UniqBrio/UniqBrio-sub017/internal/migration"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability"
	"github.com/UniqBrio/UniqBrio-sub017/internal/scheduler"
	"github.com/UniqBrio/UniqBrio-sub017/internal/seed"
	"github.com/UniqBrio/UniqBrio-sub017/internal/sequence"
	"github.com/UniqBrio/UniqBrio-sub017/internal/server"
	"github.com/UniqBrio/UniqBrio-sub017/internal/subscription"
	"github.com/UniqBrio/UniqBrio-sub017/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		events.Module,

		migration.Module,
		seed.Module,

		sequence.Module,
		ledger.Module,
		subscription.Module,
		ingest.Module,
		apikey.Module,
		audit.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}
