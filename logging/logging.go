// Package logging provides the structured logger used by bucketcache.
//
// A *Logger wraps a backend implementation. NewLogger builds one on
// zerolog; NewNopLogger discards everything. A nil *Logger is valid and
// behaves like the nop logger, so components never need to check whether
// logging was configured.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents different logging levels.
type LogLevel int

// Supported log levels, lowest first.
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the lowercase level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// LogConfig holds configuration for the logger.
type LogConfig struct {
	// Level sets the minimum level that is written.
	Level LogLevel
	// Format is "console" for human-readable output or "json".
	Format string
	// Output receives log lines. Defaults to os.Stderr.
	Output io.Writer
	// EnableCallerInfo includes file and line number in logs.
	EnableCallerInfo bool
}

// DefaultLogConfig returns a default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  LogLevelInfo,
		Format: "console",
		Output: os.Stderr,
	}
}

// Logger provides structured logging with key/value pairs.
type Logger struct {
	impl loggerImpl
}

type loggerImpl interface {
	log(ctx context.Context, level LogLevel, msg string, args []any)
	with(args []any) loggerImpl
}

// NewLogger creates a zerolog-backed logger.
func NewLogger(config LogConfig) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	if config.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zctx := zerolog.New(out).Level(toZerologLevel(config.Level)).With().Timestamp()
	if config.EnableCallerInfo {
		zctx = zctx.CallerWithSkipFrameCount(4)
	}

	return &Logger{impl: &zerologLogger{logger: zctx.Logger()}}
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(l zerolog.Logger) *Logger {
	return &Logger{impl: &zerologLogger{logger: l}}
}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *Logger {
	return &Logger{impl: nopLogger{}}
}

// Debug logs debug-level messages.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LogLevelDebug, msg, args)
}

// Info logs info-level messages.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LogLevelInfo, msg, args)
}

// Warn logs warning-level messages.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LogLevelWarn, msg, args)
}

// Error logs error-level messages.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LogLevelError, msg, args)
}

func (l *Logger) log(ctx context.Context, level LogLevel, msg string, args []any) {
	if l == nil || l.impl == nil {
		return
	}
	l.impl.log(ctx, level, msg, args)
}

// With returns a logger that adds args to every message.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.impl == nil {
		return l
	}
	return &Logger{impl: l.impl.with(args)}
}

// WithOperation returns a logger with operation context.
func (l *Logger) WithOperation(operation string) *Logger {
	return l.With("operation", operation)
}

// WithBucket returns a logger with bucket context.
func (l *Logger) WithBucket(bucket string) *Logger {
	return l.With("bucket", bucket)
}

// WithDuration returns a logger with duration context.
func (l *Logger) WithDuration(duration time.Duration) *Logger {
	return l.With("duration_ms", duration.Milliseconds())
}

// ParseLogLevel converts a level name to a LogLevel. Unknown names return
// LogLevelInfo and an error.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

type zerologLogger struct {
	logger zerolog.Logger
}

func (z *zerologLogger) log(ctx context.Context, level LogLevel, msg string, args []any) {
	var ev *zerolog.Event
	switch level {
	case LogLevelDebug:
		ev = z.logger.Debug()
	case LogLevelWarn:
		ev = z.logger.Warn()
	case LogLevelError:
		ev = z.logger.Error()
	default:
		ev = z.logger.Info()
	}
	if ev == nil {
		return
	}
	if ctx != nil {
		ev = ev.Ctx(ctx)
	}
	ev.Fields(normalizeArgs(args)).Msg(msg)
}

func (z *zerologLogger) with(args []any) loggerImpl {
	return &zerologLogger{logger: z.logger.With().Fields(normalizeArgs(args)).Logger()}
}

type nopLogger struct{}

func (nopLogger) log(context.Context, LogLevel, string, []any) {}
func (n nopLogger) with([]any) loggerImpl                       { return n }

// normalizeArgs turns a key/value list into the []any form zerolog accepts.
// Non-string keys are formatted and a dangling key gets a nil value.
func normalizeArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args)+1)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		var value any
		if i+1 < len(args) {
			value = args[i+1]
		}
		out = append(out, key, value)
	}
	return out
}

func toZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
