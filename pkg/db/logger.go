package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// ZapGormLogger adapts gorm's logger interface onto the global zap logger so
// query logs share trace fields with the rest of the process.
type ZapGormLogger struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

func NewZapGormLogger() *ZapGormLogger {
	return &ZapGormLogger{
		Level:         gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

func (l *ZapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.Level = level
	return &newLogger
}

func (l *ZapGormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.Level >= gormlogger.Info {
		zap.L().Sugar().Infof(msg, args...)
	}
}

func (l *ZapGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.Level >= gormlogger.Warn {
		zap.L().Sugar().Warnf(msg, args...)
	}
}

func (l *ZapGormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.Level >= gormlogger.Error {
		zap.L().Sugar().Errorf(msg, args...)
	}
}

func (l *ZapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && l.Level >= gormlogger.Error:
		zap.L().Error("gorm query failed", append(fields, zap.Error(err))...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.Level >= gormlogger.Warn:
		zap.L().Warn("gorm slow query", fields...)
	case l.Level >= gormlogger.Info:
		zap.L().Debug("gorm query", fields...)
	}
}
