package task

import (
	"context"

	"github.com/hibiken/asynq"
)

// Enqueuer is the producer surface services see. Kept narrow so tests can
// swap in a recording fake.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type client struct {
	c *asynq.Client
}

func (e *client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return e.c.EnqueueContext(ctx, task, opts...)
}
