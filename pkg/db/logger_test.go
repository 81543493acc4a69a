package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"
)

func TestZapGormLoggerTracesQueries(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewZapGormLogger(zap.New(core), logger.Info, true)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "gorm.query", entry.Message)
	require.Equal(t, "SELECT 1", entry.ContextMap()["sql"])
}

func TestZapGormLoggerSkipsRecordNotFound(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewZapGormLogger(zap.New(core), logger.Warn, false)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, logger.ErrRecordNotFound)

	require.Equal(t, 0, logs.Len())
}

func TestZapGormLoggerLogModeCopies(t *testing.T) {
	base := NewZapGormLogger(zap.NewNop(), logger.Warn, false)

	elevated := base.LogMode(logger.Info)
	require.NotSame(t, base, elevated)
	require.Equal(t, logger.Warn, base.level, "raising the level must not touch the original")
}
