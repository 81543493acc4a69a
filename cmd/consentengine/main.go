package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/pkg/config"
	"xs2a-consent-engine/pkg/db"
	"xs2a-consent-engine/pkg/hashistack/secretmanager"
	"xs2a-consent-engine/pkg/logger"
	"xs2a-consent-engine/pkg/redis"
	"xs2a-consent-engine/pkg/task"
	"xs2a-consent-engine/services/authorisation"
	"xs2a-consent-engine/services/consent"
	"xs2a-consent-engine/services/crypto"
	"xs2a-consent-engine/services/profile"
	"xs2a-consent-engine/services/protection"
	"xs2a-consent-engine/services/sca"
)

func main() {
	app := fx.New(
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		clock.Module,
		fx.Provide(provideSnowflakeNode),

		crypto.Module,
		protection.Module,
		profile.Module,
		sca.Module,
		consent.Module,
		consent.TaskModule,
		consent.SchedulerModule,
		authorisation.Module,

		fx.Invoke(
			db.Otel,
			registerHandlers,
		),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func registerHandlers(mux *asynq.ServeMux, svc *consent.Task) {
	mux.HandleFunc(consent.TaskSweepStatusDate, svc.HandleSweepStatusDate)
	mux.HandleFunc(consent.TaskSweepOneOffUsage, svc.HandleSweepOneOffUsage)
	mux.HandleFunc(consent.TaskSweepNotConfirmed, svc.HandleSweepNotConfirmed)
}
