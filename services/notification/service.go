package notification

import (
	"context"
	"encoding/json"
	"time"

	"designhub-points/pkg/repository"
	"designhub-points/pkg/task"
	"designhub-points/pkg/taskname"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(NewService),
	fx.Provide(func(s *Service) Notifier { return s }),
)

// TaskModule runs the delivery side in the background worker.
var TaskModule = fx.Module("notification-tasks",
	fx.Provide(repository.ProvideStore[Notification]),
	fx.Provide(
		fx.Annotate(
			NewTaskHandler,
			fx.As(new(task.Registrar)),
			fx.ResultTags(`group:"task_registrars"`),
		),
	),
)

// Notifier is the fire-and-forget side channel the economic services use.
// A failed notification never fails the transaction that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID, title, content string)
}

type payload struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ServiceParams struct {
	fx.In
	Enqueuer task.Enqueuer
}

type Service struct {
	enqueuer task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{enqueuer: p.Enqueuer}
}

func (s *Service) Notify(ctx context.Context, userID, title, content string) {
	body, err := json.Marshal(payload{UserID: userID, Title: title, Content: content})
	if err == nil {
		_, err = s.enqueuer.Enqueue(ctx, asynq.NewTask(taskname.NotificationSend, body, asynq.Queue("low")))
	}
	if err != nil {
		zap.L().Warn("failed to enqueue notification",
			zap.String("user_id", userID),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

type TaskHandler struct {
	store repository.Repository[Notification]
	node  *snowflake.Node
}

func NewTaskHandler(store repository.Repository[Notification], node *snowflake.Node) *TaskHandler {
	return &TaskHandler{store: store, node: node}
}

func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(taskname.NotificationSend, h.handleSend)
}

func (h *TaskHandler) handleSend(ctx context.Context, t *asynq.Task) error {
	var p payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	return h.store.Create(ctx, &Notification{
		ID:        h.node.Generate().String(),
		UserID:    p.UserID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: time.Now(),
	})
}
