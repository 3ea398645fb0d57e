package ghola

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// QueryLogger defines the interface for logging repository operations
type QueryLogger interface {
	// LogQuery logs a query execution with timing and error information
	LogQuery(ctx context.Context, operation string, query string, args []any, duration time.Duration, err error)

	// LogOperation logs a high-level repository operation
	LogOperation(ctx context.Context, operation string, entityType string, duration time.Duration, err error)
}

// LoggerConfig holds configuration for the zerolog-backed logger
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console writer for development
	Output io.Writer
}

// ZerologLogger implements QueryLogger on top of rs/zerolog
type ZerologLogger struct {
	zlog zerolog.Logger
}

// NewZerologLogger creates a structured query logger
func NewZerologLogger(cfg LoggerConfig) *ZerologLogger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("component", "ghola").
		Logger()

	return &ZerologLogger{zlog: zlog}
}

// LogQuery implements QueryLogger
func (l *ZerologLogger) LogQuery(ctx context.Context, operation string, query string, args []any, duration time.Duration, err error) {
	evt := l.zlog.Debug()
	if err != nil {
		evt = l.zlog.Error().Err(err)
	}
	evt.Str("operation", operation).
		Str("query", query).
		Interface("args", args).
		Dur("duration", duration).
		Msg("query executed")
}

// LogOperation implements QueryLogger
func (l *ZerologLogger) LogOperation(ctx context.Context, operation string, entityType string, duration time.Duration, err error) {
	evt := l.zlog.Info()
	if err != nil {
		evt = l.zlog.Error().Err(err)
	}
	evt.Str("operation", operation).
		Str("entity", entityType).
		Dur("duration", duration).
		Msg("repository operation")
}

// NoOpLogger is a logger that does nothing (useful for disabling logging)
type NoOpLogger struct{}

// NewNoOpLogger creates a no-op logger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogQuery implements QueryLogger
func (l *NoOpLogger) LogQuery(ctx context.Context, operation string, query string, args []any, duration time.Duration, err error) {
	// No-op
}

// LogOperation implements QueryLogger
func (l *NoOpLogger) LogOperation(ctx context.Context, operation string, entityType string, duration time.Duration, err error) {
	// No-op
}

// logOperation is a helper to log an operation with timing
func logOperation(logger QueryLogger, ctx context.Context, operation string, entityType string, start time.Time, err error) {
	if logger != nil {
		logger.LogOperation(ctx, operation, entityType, time.Since(start), err)
	}
}
