// Package gormlogger routes gorm statements and errors to the zerolog global logger.
package gormlogger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

// Logger implements gorm's logger.Interface.
type Logger struct {
	Level         gormlog.LogLevel
	SlowThreshold time.Duration
	logger        *zerolog.Logger
}

var _ gormlog.Interface = (*Logger)(nil)

// New returns a logger writing to the global zerolog logger at warn level.
func New() *Logger {
	return &Logger{
		Level:         gormlog.Warn,
		SlowThreshold: 200 * time.Millisecond, //nolint:mnd
	}
}

// WithLogger returns a copy writing to l instead of the global logger.
func (l *Logger) WithLogger(zl *zerolog.Logger) *Logger {
	cp := *l
	cp.logger = zl

	return &cp
}

// LogMode implements logger.Interface.
func (l *Logger) LogMode(level gormlog.LogLevel) gormlog.Interface {
	cp := *l
	cp.Level = level

	return &cp
}

// Info implements logger.Interface.
func (l *Logger) Info(_ context.Context, msg string, data ...any) {
	if l.Level >= gormlog.Info {
		l.zl().Info().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Warn implements logger.Interface.
func (l *Logger) Warn(_ context.Context, msg string, data ...any) {
	if l.Level >= gormlog.Warn {
		l.zl().Warn().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Error implements logger.Interface.
func (l *Logger) Error(_ context.Context, msg string, data ...any) {
	if l.Level >= gormlog.Error {
		l.zl().Error().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Trace implements logger.Interface.
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.Level <= gormlog.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && l.Level >= gormlog.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.zl().Error().Err(err).Str("component", "gorm").Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.Level >= gormlog.Warn:
		sql, rows := fc()
		l.zl().Warn().Str("component", "gorm").Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.Level >= gormlog.Info:
		sql, rows := fc()
		l.zl().Debug().Str("component", "gorm").Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}

func (l *Logger) zl() *zerolog.Logger {
	if l.logger != nil {
		return l.logger
	}

	return &log.Logger
}
