// Package log provides structured logging for go-rigmotion commands and
// services. It wraps slog; the kinematics core never logs.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Options configures the global logger.
type Options struct {
	Level  string    // debug, info, warn, error
	JSON   bool      // JSON handler instead of text
	Output io.Writer // defaults to stdout
}

// OptionsFromEnv reads RIG_LOG_LEVEL and picks JSON output when
// GO_ENV=production.
func OptionsFromEnv() Options {
	return Options{
		Level: os.Getenv("RIG_LOG_LEVEL"),
		JSON:  os.Getenv("GO_ENV") == "production",
	}
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger without touching the global one.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

// Init sets the global logger. Only the first call has any effect.
func Init(opts Options) {
	once.Do(func() {
		logger = New(opts)
		slog.SetDefault(logger)
	})
}

// L returns the global logger, initialising it from the environment if
// needed.
func L() *slog.Logger {
	Init(OptionsFromEnv())
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
