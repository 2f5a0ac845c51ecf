package scoredef

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// FatalHandler receives unrecoverable errors: *OutOfMemoryError and
// *UnifyError. It is called at most once per session.
type FatalHandler func(err error)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	fatal            FatalHandler
	memoryBudget     int64
}

// Option configures Start.
type Option func(*options)

func defaultOptions() options {
	return options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NewTextLogger(slog.LevelInfo),
	}
}

// WithLogger configures the session logger.
// Pass NoopLogger() to silence it.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &scoredef.BasicMetricsCollector{}
//	s, err := scoredef.Start(cfg, scoredef.WithMetricsCollector(metrics))
//	// ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFatalHandler replaces the default fatal path, which prints the error
// to stderr and exits with status 1. A handler that returns leaves the
// failing call without a result; see Location.Alloc.
func WithFatalHandler(fn FatalHandler) Option {
	return func(o *options) {
		o.fatal = fn
	}
}

// WithMemoryBudget caps the bytes all arenas in the process may reserve.
// Start fails when the arena does not fit into the remaining budget.
func WithMemoryBudget(n int64) Option {
	return func(o *options) {
		o.memoryBudget = n
	}
}

func exitFatal(err error) {
	var oom *OutOfMemoryError
	if errors.As(err, &oom) {
		fmt.Fprintln(os.Stderr, "scoredef:", oom.Error())
	} else {
		fmt.Fprintln(os.Stderr, "scoredef: fatal:", err)
	}
	os.Exit(1)
}
