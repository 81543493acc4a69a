package protection

import "go.uber.org/fx"

var Module = fx.Module("protection",
	fx.Provide(
		New,
	),
)
