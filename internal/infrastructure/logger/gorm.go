package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// maxLoggedSQL bounds the statement text kept in a log line.
const maxLoggedSQL = 2048

// sqlOutcome classifies a finished statement for logging.
type sqlOutcome int

const (
	sqlOK sqlOutcome = iota
	sqlNotFound
	sqlContention
	sqlGuardRejected
	sqlFailed
)

// classifySQL sorts driver errors into the outcomes the ledger cares about.
// Lock waits and serialization failures are expected under concurrent
// transitions; check violations mean a balance guard held.
func classifySQL(err error) sqlOutcome {
	switch {
	case err == nil:
		return sqlOK
	case errors.Is(err, gormlogger.ErrRecordNotFound):
		return sqlNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return sqlContention
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "SQLSTATE 55P03"),
		strings.Contains(msg, "SQLSTATE 40001"),
		strings.Contains(msg, "SQLSTATE 40P01"),
		strings.Contains(msg, "database is locked"):
		return sqlContention
	case strings.Contains(msg, "SQLSTATE 23514"):
		return sqlGuardRejected
	}
	return sqlFailed
}

// GormLogger routes GORM's statement log through zap with the request,
// campaign and trace identifiers carried by the statement's context.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logNotFound   bool
}

// GormLoggerOption configures a GormLogger.
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the latency above which statements log at Warn.
// Zero disables slow statement reporting.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithNotFoundLogged logs record-not-found results as errors. Lookups of
// absent campaigns are routine, so they are dropped by default.
func WithNotFoundLogged() GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = true }
}

// NewGormLogger returns a GORM logger writing to a "gorm" child of base.
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        base.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.forContext(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.forContext(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.forContext(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface. It is called once per statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	outcome := classifySQL(err)
	if outcome == sqlNotFound && !l.logNotFound {
		outcome = sqlOK
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	if outcome == sqlOK && !slow && l.level < gormlogger.Info {
		return
	}

	statement, rows := fc()
	if len(statement) > maxLoggedSQL {
		statement = statement[:maxLoggedSQL] + "..."
	}
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", statement),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	log := l.forContext(ctx)

	switch {
	case outcome == sqlContention && l.level >= gormlogger.Warn:
		log.Warn("SQL lock contention", fields...)
	case outcome == sqlGuardRejected && l.level >= gormlogger.Warn:
		log.Warn("SQL check constraint rejected write", fields...)
	case outcome != sqlOK && l.level >= gormlogger.Error:
		log.Error("SQL error", fields...)
	case slow && l.level >= gormlogger.Warn:
		log.Warn("Slow SQL", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		log.Debug("SQL", fields...)
	}
}

func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	log := WithTraceContext(ctx, l.logger)
	for _, key := range []contextKey{RequestIDKey, CampaignIDKey} {
		if v := stringValue(ctx, key); v != "" {
			log = log.With(zap.String(string(key), v))
		}
	}
	return log
}

// MapGormLogLevel maps a configured level name to GORM's levels. Unknown
// names fall back to Warn so slow and failed statements still show.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
