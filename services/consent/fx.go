package consent

import (
	"go.uber.org/fx"
)

var Module = fx.Module("consent.module",
	fx.Provide(
		NewService,
		NewSweeper,
	),
)

// SchedulerModule is opt-in so worker processes can run the sweeps without
// also owning the cron triggers.
var SchedulerModule = fx.Module("consent.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(RegisterScheduler),
)
