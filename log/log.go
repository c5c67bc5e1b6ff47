// Package log configures the module-wide structured logger. Everything is
// written to stderr so that stdout stays free for callers; the MCP server
// subprocess owns its own stderr.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Setup initializes the global logger. Invalid levels fall back to INFO.
// Repeat calls are no-ops.
func Setup(level string) {
	once.Do(func() {
		var l slog.Level
		switch strings.ToUpper(level) {
		case "DEBUG":
			l = slog.LevelDebug
		case "WARN":
			l = slog.LevelWarn
		case "ERROR":
			l = slog.LevelError
		default:
			l = slog.LevelInfo
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
		logger = slog.New(handler)
	})
}

// Get returns the configured logger, initializing a default one if Setup
// has not been called.
func Get() *slog.Logger {
	if logger == nil {
		Setup("INFO")
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithServer returns a logger with the server command field set.
func WithServer(command string) *slog.Logger {
	return Get().With(slog.String("server", command))
}
