package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	scope := shared.TeamScope{TenantID: uuid.New()}
	ctx := WithScope(WithRequestID(context.Background(), "req-7"), scope)

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		message string
		want    zapcore.Level
	}{
		{"error is logged", gormlogger.Error, time.Now(), errors.New("duplicate key"), "SQL error", zapcore.ErrorLevel},
		{"slow statement warns", gormlogger.Warn, time.Now().Add(-time.Second), nil, "Slow SQL", zapcore.WarnLevel},
		{"info logs every statement", gormlogger.Info, time.Now(), nil, "SQL", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			l := NewGormLogger(zap.New(core), tt.level, WithSlowThreshold(100*time.Millisecond))

			l.Trace(ctx, tt.begin, statement("INSERT INTO contracts", 3), tt.err)

			entries := recorded.FilterMessage(tt.message).All()
			if assert.Len(t, entries, 1) {
				assert.Equal(t, tt.want, entries[0].Level)
				fields := entries[0].ContextMap()
				assert.Equal(t, "req-7", fields["request_id"])
				assert.Equal(t, scope.TenantID.String(), fields["tenant_id"])
				assert.Equal(t, int64(3), fields["rows"])
			}
		})
	}
}

func TestGormLogger_Quiet(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Warn)

	l.Trace(context.Background(), time.Now(), statement("SELECT 1", 1), nil)
	l.Trace(context.Background(), time.Now(), statement("SELECT 1", 0), gormlogger.ErrRecordNotFound)
	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), statement("SELECT 1", 0), errors.New("x"))
	l.Info(context.Background(), "migrated %d", 4)

	assert.Zero(t, recorded.Len())
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), gormlogger.Info)
	quiet := l.LogMode(gormlogger.Error).(*GormLogger)

	assert.Equal(t, gormlogger.Info, l.level)
	assert.Equal(t, gormlogger.Error, quiet.level)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
