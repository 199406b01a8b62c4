// Package logger configures the process-wide structured logger.
//
// Components receive a *slog.Logger; this package only builds the default
// one from LOG_LEVEL (or a CLI verbose flag) and offers short-hand helpers.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultLogger is the global structured logger.
var DefaultLogger *slog.Logger

func init() {
	DefaultLogger = New(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// New builds a text logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// SetLevel replaces DefaultLogger with one at level.
func SetLevel(level slog.Level) {
	DefaultLogger = New(os.Stderr, level)
}

// SetVerbose switches between debug and info.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDefault returns l, or DefaultLogger when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return DefaultLogger
	}
	return l
}
