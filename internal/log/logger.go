// Package log builds slog loggers from murmur configuration. The pretty
// handler is meant for interactive terminals; JSON is for everything else.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/murmurlabs/murmur/internal/config"
)

// Logger bundles an slog.Logger with its handler so callers can hand either
// to collaborators.
type Logger struct {
	handler slog.Handler
	logger  *slog.Logger
}

// NewLogger creates a Logger writing to stdout, formatted and filtered
// according to the configuration.
func NewLogger(cfg config.AppConfig) *Logger {
	return NewLoggerWithWriter(os.Stdout, cfg.LogFormat(), cfg.LogLevel())
}

// NewLoggerWithWriter creates a Logger writing to w. The stdio MCP transport
// uses this to keep log output off stdout.
func NewLoggerWithWriter(w io.Writer, format config.LogFormat, level string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = newPrettyHandler(w, opts)
	}

	return &Logger{handler: handler, logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog returns the wrapped slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Handler returns the underlying slog.Handler.
func (l *Logger) Handler() slog.Handler {
	return l.handler
}

// With returns a Logger carrying additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{handler: l.handler, logger: l.logger.With(args...)}
}

// SetDefault installs the wrapped logger as the process-wide slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.logger)
}
