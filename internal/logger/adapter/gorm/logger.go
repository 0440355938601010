// Package gorm routes gorm's SQL logging through zerolog.
package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Logger implements gorm's logger.Interface on top of a zerolog logger.
type Logger struct {
	zl            *zerolog.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// New returns a gorm logger writing to the global zerolog logger.
// Queries slower than slowThreshold are logged as warnings, 0 disables the check.
func New(slowThreshold time.Duration) *Logger {
	return &Logger{
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

// WithLogger pins the adapter to zl instead of the global logger.
func (l *Logger) WithLogger(zl zerolog.Logger) *Logger {
	c := *l
	c.zl = &zl

	return &c
}

func (l *Logger) logger() *zerolog.Logger {
	if l.zl != nil {
		return l.zl
	}

	return &log.Logger
}

// LogMode implements gormlogger.Interface.
func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level

	return &c
}

// Info implements gormlogger.Interface.
func (l *Logger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger().Info().Str("component", "gorm").Msgf(msg, args...)
	}
}

// Warn implements gormlogger.Interface.
func (l *Logger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger().Warn().Str("component", "gorm").Msgf(msg, args...)
	}
}

// Error implements gormlogger.Interface.
func (l *Logger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger().Error().Str("component", "gorm").Msgf(msg, args...)
	}
}

// Trace implements gormlogger.Interface.
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	var e *zerolog.Event

	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		e = l.logger().Error().Err(err)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		e = l.logger().Warn().Dur("threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		e = l.logger().Debug()
	default:
		return
	}

	sql, rows := fc()
	e.Str("component", "gorm").
		Str("sql", sql).
		Int64("rows", rows).
		Dur("elapsed", elapsed).
		Msg("query")
}
