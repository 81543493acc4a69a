package consent

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"xs2a-consent-engine/pkg/config"
	"xs2a-consent-engine/pkg/task"
)

const (
	defaultStatusDateCron   = "0 0 * * *"
	defaultOneOffUsageCron  = "30 0 * * *"
	defaultNotConfirmedCron = "*/10 * * * *"
)

// Scheduler enqueues the sweep tasks on their cron schedules. The cron
// entries only enqueue; the asynq workers do the actual sweeping, so a
// slow sweep never delays the next trigger.
type Scheduler struct {
	cron     *cron.Cron
	enqueuer task.Enqueuer
	cfg      *config.Config
}

type SchedulerParams struct {
	fx.In
	Enqueuer task.Enqueuer
	Config   *config.Config
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		enqueuer: p.Enqueuer,
		cfg:      p.Config,
	}
}

func (s *Scheduler) enqueue(taskType string) func() {
	return func() {
		if _, err := s.enqueuer.Enqueue(asynq.NewTask(taskType, nil), asynq.Queue("low")); err != nil {
			zap.L().Error("failed to enqueue sweep task",
				zap.String("task_type", taskType), zap.Error(err))
			return
		}
		zap.L().Debug("enqueued sweep task", zap.String("task_type", taskType))
	}
}

func cronSpec(configured, fallback string) string {
	if configured == "" {
		return fallback
	}
	return configured
}

// RegisterScheduler wires the three sweep triggers into the fx lifecycle.
func RegisterScheduler(lc fx.Lifecycle, s *Scheduler) error {
	entries := []struct {
		spec     string
		taskType string
	}{
		{cronSpec(s.cfg.Scheduler.StatusDateCron, defaultStatusDateCron), TaskSweepStatusDate},
		{cronSpec(s.cfg.Scheduler.OneOffUsageCron, defaultOneOffUsageCron), TaskSweepOneOffUsage},
		{cronSpec(s.cfg.Scheduler.NotConfirmedCron, defaultNotConfirmedCron), TaskSweepNotConfirmed},
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, s.enqueue(e.taskType)); err != nil {
			return err
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			zap.L().Info("consent sweep scheduler started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-s.cron.Stop().Done()
			return nil
		},
	})
	return nil
}
