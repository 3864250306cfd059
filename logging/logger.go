// Package logging provides the kernel simulator's structured logging:
// a thin layer over log/slog with text and JSON handlers, a
// process-wide default logger, and helpers that stamp the kernel's
// recurring fields (pid, drive id, path, operation) onto log lines.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Config selects the handler NewLogger builds.
type Config struct {
	// Level is the minimum level a line must have to be emitted.
	Level slog.Level
	// Format selects the handler: "json", or text for anything else.
	Format string
	// Output receives the log stream; defaults to stderr.
	Output io.Writer
	// AddSource stamps each line with its file:line origin.
	AddSource bool
}

// NewLogger builds a slog.Logger per cfg.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// defaultLogger is the process-wide logger kernel code falls back to
// when a subsystem wasn't handed one explicitly.
var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(NewLogger(Config{Level: slog.LevelInfo}))
}

// SetDefault replaces the process-wide default logger. A nil logger is
// ignored so callers can pass a conditionally-built logger without
// guarding.
func SetDefault(l *slog.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// Default returns the process-wide default logger.
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// The kernel's log lines repeat a small set of fields: which process,
// which drive, which path, which operation. These helpers keep the
// attribute keys consistent across subsystems.

// WithOperation tags lines with the kernel operation emitting them
// (e.g. "syscall").
func WithOperation(l *slog.Logger, op string) *slog.Logger {
	return l.With(slog.String("operation", op))
}

// WithPID tags lines with the process they concern.
func WithPID(l *slog.Logger, pid int) *slog.Logger {
	return l.With(slog.Int("pid", pid))
}

// WithDrive tags lines with a drive id.
func WithDrive(l *slog.Logger, drive int) *slog.Logger {
	return l.With(slog.Int("drive_id", drive))
}

// WithPath tags lines with a filesystem path.
func WithPath(l *slog.Logger, path string) *slog.Logger {
	return l.With(slog.String("path", path))
}
