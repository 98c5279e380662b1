// Package logger wraps log/slog with the field vocabulary of the progression
// engine. Handlers and repositories take a *Logger so call sites stay terse
// and the JSON output shape is decided in one place.
package logger

import (
	"context"
	"io"
	"os"

	"log/slog"
)

// Field is one structured logging attribute.
type Field = slog.Attr

// Common field constructors.
func String(key, value string) Field          { return slog.String(key, value) }
func Int(key string, value int) Field         { return slog.Int(key, value) }
func Int64(key string, value int64) Field     { return slog.Int64(key, value) }
func Float64(key string, value float64) Field { return slog.Float64(key, value) }
func Bool(key string, value bool) Field       { return slog.Bool(key, value) }
func Any(key string, value any) Field         { return slog.Any(key, value) }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return slog.Any("error", nil)
	}
	return slog.String("error", err.Error())
}

// Progression-related field helpers.
func UserID(id string) Field      { return String("user_id", id) }
func QuestionID(id string) Field  { return String("question_id", id) }
func NodeID(id string) Field      { return String("node_id", id) }
func ChallengeID(id string) Field { return String("challenge_id", id) }
func XPAmount(xp int) Field       { return Int("xp_amount", xp) }
func Streak(days int) Field       { return Int("streak", days) }

// Logger emits structured JSON log records.
type Logger struct {
	s *slog.Logger
}

// Options configures the logger.
type Options struct {
	Output    io.Writer
	Level     slog.Level
	AddSource bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Output: os.Stdout,
		Level:  slog.LevelInfo,
	}
}

// New creates a Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	handler := slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	})
	return &Logger{s: slog.New(handler)}
}

// Default creates a logger with default options.
func Default() *Logger {
	return New(DefaultOptions())
}

// With returns a Logger that adds the fields to every record.
func (l *Logger) With(fields ...Field) *Logger {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return &Logger{s: l.s.With(args...)}
}

// Slog exposes the underlying slog.Logger for components that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.s
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.s.LogAttrs(context.Background(), slog.LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.s.LogAttrs(context.Background(), slog.LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.s.LogAttrs(context.Background(), slog.LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.s.LogAttrs(context.Background(), slog.LevelError, msg, fields...)
}
