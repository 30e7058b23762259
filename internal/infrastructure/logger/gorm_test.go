package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), logs
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM usage_buckets WHERE user_id = ?", 1 }

	t.Run("failed queries log the error", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "query failed", entry.Message)
		assert.Contains(t, entry.ContextMap()["sql"], "usage_buckets")
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Warn)
		gl.slowThreshold = time.Nanosecond

		gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "slow query", logs.All()[0].Message)
	})

	t.Run("silent level suppresses everything", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), query, errors.New("ignored"))

		assert.Equal(t, 0, logs.Len())
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := observedGormLogger(gormlogger.Warn)

	quieter := gl.LogMode(gormlogger.Silent)

	assert.Equal(t, gormlogger.Silent, quieter.(*GormLogger).level)
	assert.Equal(t, gormlogger.Warn, gl.level, "original is untouched")
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"anything", gormlogger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.input), tt.input)
	}
}
