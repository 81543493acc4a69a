package sca

import "go.uber.org/fx"

var Module = fx.Module("sca.module",
	fx.Provide(Select),
)
