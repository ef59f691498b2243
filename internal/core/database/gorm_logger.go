package database

import (
	"context"
	"errors"
	"time"

	"shop-api/internal/core/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is used when no slow query threshold is configured.
const DefaultSlowQuery = 200 * time.Millisecond

// GormLogger forwards gorm logs to the global zap logger.
type GormLogger struct {
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

// NewGormLogger creates a GormLogger that reports queries slower than slowQuery as warnings.
func NewGormLogger(slowQuery time.Duration) *GormLogger {
	if slowQuery <= 0 {
		slowQuery = DefaultSlowQuery
	}
	return &GormLogger{level: gormlogger.Warn, slowQuery: slowQuery}
}

// LogMode returns a copy of the logger at level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		logger.Get().Sugar().Infof(msg, args...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		logger.Get().Sugar().Warnf(msg, args...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		logger.Get().Sugar().Errorf(msg, args...)
	}
}

// Trace logs a finished statement. Missing rows are not errors.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		logger.Get().Error("Query failed",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	case elapsed > l.slowQuery && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.Get().Warn("Slow query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", l.slowQuery),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.Get().Debug("Query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
