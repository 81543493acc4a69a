package consent

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var TaskModule = fx.Module("task.consent",
	fx.Provide(NewTask),
)

// Task adapts the sweeps to asynq handlers so expiration work runs on the
// worker queue instead of inside the cron goroutine.
type Task struct {
	sweeper *Sweeper
}

func NewTask(sweeper *Sweeper) *Task {
	return &Task{sweeper: sweeper}
}

func (s *Task) HandleSweepStatusDate(ctx context.Context, t *asynq.Task) error {
	zap.L().Info("start consent sweep", zap.String("task_type", t.Type()))
	return s.sweeper.ExpireByDate(ctx)
}

func (s *Task) HandleSweepOneOffUsage(ctx context.Context, t *asynq.Task) error {
	zap.L().Info("start consent sweep", zap.String("task_type", t.Type()))
	return s.sweeper.ExpireNonRecurring(ctx)
}

func (s *Task) HandleSweepNotConfirmed(ctx context.Context, t *asynq.Task) error {
	zap.L().Info("start consent sweep", zap.String("task_type", t.Type()))
	return s.sweeper.ExpireNotConfirmed(ctx)
}
