package main

import (
	"go.uber.org/fx"

	"designhub-points/pkg/config"
	"designhub-points/pkg/db"
	"designhub-points/pkg/logger"
	"designhub-points/pkg/redis"
	"designhub-points/pkg/sequence"
	"designhub-points/pkg/task"
	"designhub-points/services/antifraud"
	"designhub-points/services/member"
	"designhub-points/services/notification"
)

// sweeper is the background worker: it consumes detector sweep tasks and
// notification deliveries from the queue pointsd feeds.
func main() {
	fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		task.ServerModule,

		member.Module,
		antifraud.ServiceModule,
		antifraud.TaskModule,
		notification.TaskModule,
	).Run()
}
