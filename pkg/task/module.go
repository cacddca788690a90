package task

import (
	"context"

	"designhub-points/pkg/config"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ClientModule wires the asynq producer side. Services depend on the
// Enqueuer interface rather than the concrete client.
var ClientModule = fx.Module("task-client",
	fx.Provide(NewClient),
	fx.Provide(func(c *asynq.Client) Enqueuer { return &client{c: c} }),
)

// ServerModule wires the consumer side. Handlers register themselves through
// the group-collected Registrar slice.
var ServerModule = fx.Module("task-server",
	fx.Provide(NewServeMux),
	fx.Invoke(RunServer),
)

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func NewClient(lc fx.Lifecycle, cfg *config.Config) *asynq.Client {
	c := asynq.NewClient(redisOpt(cfg))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error { return c.Close() },
	})
	return c
}

// Registrar lets each service attach its task handlers to the shared mux.
type Registrar interface {
	Register(mux *asynq.ServeMux)
}

type RegistrarParams struct {
	fx.In
	Registrars []Registrar `group:"task_registrars"`
}

func NewServeMux(p RegistrarParams) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, r := range p.Registrars {
		r.Register(mux)
	}
	return mux
}

func RunServer(lc fx.Lifecycle, cfg *config.Config, mux *asynq.ServeMux) {
	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Run(mux); err != nil {
					zap.L().Fatal("asynq server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Shutdown()
			return nil
		},
	})
}
