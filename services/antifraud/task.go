package antifraud

import (
	"context"
	"encoding/json"

	"designhub-points/pkg/config"
	"designhub-points/pkg/task"
	"designhub-points/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TaskModule wires the detector sweeps into the background worker.
var TaskModule = fx.Module("antifraud-tasks",
	fx.Provide(
		fx.Annotate(
			NewTaskHandler,
			fx.As(new(task.Registrar)),
			fx.ResultTags(`group:"task_registrars"`),
		),
	),
	fx.Invoke(RunClusterScheduler),
)

// SweepPayload targets one resource's detectors.
type SweepPayload struct {
	ResourceID string `json:"resourceId"`
}

// NewSweepTask builds the asynq task enqueued after each download commit.
func NewSweepTask(name, resourceID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SweepPayload{ResourceID: resourceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(name, payload, asynq.Queue("low")), nil
}

type TaskHandler struct {
	svc *Service
}

func NewTaskHandler(svc *Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(taskname.RiskSweepFrequency, h.handleFrequencySweep)
	mux.HandleFunc(taskname.RiskSweepBurst, h.handleBurstSweep)
	mux.HandleFunc(taskname.RiskSweepCluster, h.handleClusterSweep)
}

func (h *TaskHandler) handleFrequencySweep(ctx context.Context, t *asynq.Task) error {
	var p SweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	return h.svc.ScanResourceFrequency(ctx, p.ResourceID)
}

func (h *TaskHandler) handleBurstSweep(ctx context.Context, t *asynq.Task) error {
	var p SweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	return h.svc.ScanNewAccountBurst(ctx, p.ResourceID)
}

func (h *TaskHandler) handleClusterSweep(ctx context.Context, _ *asynq.Task) error {
	return h.svc.ScanClusters(ctx)
}

// RunClusterScheduler enqueues the hourly cluster sweep. Frequency and
// burst sweeps are event-driven; cluster detection has no single resource
// to key off, so it runs on a schedule.
func RunClusterScheduler(lc fx.Lifecycle, cfg *config.Config) {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, nil)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := scheduler.Register("@every 1h",
				asynq.NewTask(taskname.RiskSweepCluster, nil, asynq.Queue("low"))); err != nil {
				return err
			}
			go func() {
				if err := scheduler.Run(); err != nil {
					zap.L().Fatal("cluster sweep scheduler exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Shutdown()
			return nil
		},
	})
}
