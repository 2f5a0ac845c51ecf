package scoredef

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/scoredef/allocator"
)

// Logger wraps slog.Logger with measurement-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRunID tags every record with the session's run id.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithRank tags every record with the process rank.
func (l *Logger) WithRank(rank int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank),
	}
}

// LogStart logs the arena layout of a new session.
func (l *Logger) LogStart(ctx context.Context, stats allocator.Stats) {
	l.InfoContext(ctx, "session started",
		"pages", stats.PagesTotal,
		"page_size", stats.PageSize,
	)
}

// LogUnify logs the outcome of unification.
func (l *Logger) LogUnify(ctx context.Context, size, definitions int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "unification failed",
			"size", size,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "unification completed",
			"size", size,
			"definitions", definitions,
			"elapsed", elapsed,
		)
	}
}

// LogOutOfMemory logs arena exhaustion together with the allocator state.
func (l *Logger) LogOutOfMemory(ctx context.Context, err error, stats allocator.Stats) {
	l.ErrorContext(ctx, "out of memory",
		"error", err,
		"pages_in_use", stats.PagesInUse,
		"pages_total", stats.PagesTotal,
		"page_managers", stats.Managers,
	)
}

// LogArchive logs an archive hand-off.
func (l *Logger) LogArchive(ctx context.Context, runID string, blobs int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "archive failed",
			"run_id", runID,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "archive written",
			"run_id", runID,
			"blobs", blobs,
			"bytes", bytes,
		)
	}
}
