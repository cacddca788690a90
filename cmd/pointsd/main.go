package main

import (
	"go.uber.org/fx"

	"designhub-points/pkg/config"
	"designhub-points/pkg/db"
	"designhub-points/pkg/health"
	"designhub-points/pkg/logger"
	"designhub-points/pkg/redis"
	"designhub-points/pkg/sequence"
	"designhub-points/pkg/server"
	"designhub-points/pkg/task"
	"designhub-points/services/adjustment"
	"designhub-points/services/antifraud"
	"designhub-points/services/download"
	"designhub-points/services/exchange"
	"designhub-points/services/ledger"
	"designhub-points/services/member"
	"designhub-points/services/notification"
)

// pointsd serves the points ledger HTTP API. Detector sweeps and
// notification delivery run in the sweeper process.
func main() {
	fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		task.ClientModule,
		server.Module,
		health.Module,

		member.Module,
		ledger.Module,
		notification.Module,
		antifraud.Module,
		download.Module,
		adjustment.Module,
		exchange.Module,
	).Run()
}
