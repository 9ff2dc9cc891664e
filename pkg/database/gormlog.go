package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/ormkit/internal/logger"
)

// gormLogger routes GORM's log output through internal/logger.
type gormLogger struct {
	database      string
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

var _ gormlogger.Interface = (*gormLogger)(nil)

func newGormLogger(database string, cfg Config) *gormLogger {
	return &gormLogger{
		database:      database,
		level:         parseGormLevel(cfg.LogLevel),
		slowThreshold: cfg.SlowThreshold,
	}
}

func parseGormLevel(s string) gormlogger.LogLevel {
	switch s {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		logger.InfoCtx(ctx, fmt.Sprintf(msg, data...), l.fields(ctx)...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		logger.WarnCtx(ctx, fmt.Sprintf(msg, data...), l.fields(ctx)...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		logger.ErrorCtx(ctx, fmt.Sprintf(msg, data...), l.fields(ctx)...)
	}
}

// Trace logs a finished statement. Failures log at ERROR, slow statements at
// WARN and everything else at DEBUG when the level is info.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		// Constraint violations are reported to the caller as ErrConflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.DebugCtx(ctx, "Statement rejected", l.fields(ctx,
				logger.KeySQL, sql, logger.KeyError, err)...)
			return
		}
		logger.ErrorCtx(ctx, "Statement failed", l.fields(ctx,
			logger.KeySQL, sql, logger.KeyRows, rows, logger.KeyDuration, elapsed, logger.KeyError, err)...)

	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.WarnCtx(ctx, "Slow statement", l.fields(ctx,
			logger.KeySQL, sql, logger.KeyRows, rows, logger.KeyDuration, elapsed,
			"threshold", l.slowThreshold)...)

	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.DebugCtx(ctx, "Statement executed", l.fields(ctx,
			logger.KeySQL, sql, logger.KeyRows, rows, logger.KeyDuration, elapsed)...)
	}
}

// fields prepends the database name unless the context already carries it.
func (l *gormLogger) fields(ctx context.Context, args ...any) []any {
	if lc := logger.FromContext(ctx); lc != nil && lc.Database != "" {
		return args
	}
	return append([]any{logger.KeyDatabase, l.database}, args...)
}
