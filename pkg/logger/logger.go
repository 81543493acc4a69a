package logger

import (
	"xs2a-consent-engine/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("zap",
	fx.Provide(
		New,
	),
)

// New builds the process logger and installs it as the zap global, so
// services can log via zap.L() without threading a logger around.
func New(cfg *config.Config) *zap.Logger {
	log := zap.Must(build(cfg.AppEnv))
	log = log.With(
		zap.String("env", cfg.AppEnv),
		zap.String("service", cfg.AppName),
	)

	zap.ReplaceGlobals(log)

	return log
}

func build(env string) (*zap.Logger, error) {
	if env != "production" {
		return zap.NewDevelopment()
	}

	c := zap.NewProductionConfig()
	c.Encoding = "json"
	c.EncoderConfig.TimeKey = "timestamp"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	c.EncoderConfig.LevelKey = "severity"
	c.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	c.EncoderConfig.CallerKey = "caller"
	c.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	c.EncoderConfig.StacktraceKey = "stacktrace"
	c.OutputPaths = []string{"stdout"}
	c.ErrorOutputPaths = []string{"stderr"}

	return c.Build()
}
