package gcheap

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with gcheap-specific context.
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

// WithHeap adds a heap name field to the logger.
func (l *Logger) WithHeap(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("heap", name),
	}
}

// LogInit logs heap creation.
func (l *Logger) LogInit(capacity, rootStackSize, threshold int, compact, offHeap bool) {
	l.Debug("heap initialized",
		"capacity", capacity,
		"root_stack_size", rootStackSize,
		"threshold", threshold,
		"compact", compact,
		"offheap", offHeap,
	)
}

// LogCollect logs a completed collection cycle.
func (l *Logger) LogCollect(stats CollectStats) {
	l.Info("collection completed",
		"reclaimed", stats.Reclaimed,
		"remaining", stats.Remaining,
		"moved", stats.Moved,
		"threshold", stats.Threshold,
		"generation", stats.Generation,
		"implicit", stats.Implicit,
		"duration", stats.Duration,
	)
}

// LogConversion logs a rejected conversion.
func (l *Logger) LogConversion(from, to Kind, err error) {
	l.Warn("conversion failed",
		"from", from.String(),
		"to", to.String(),
		"error", err,
	)
}

// LogFatal logs an error of the fatal class.
func (l *Logger) LogFatal(op string, err error) {
	l.Error("fatal heap error",
		"op", op,
		"error", err,
	)
}

// LogClose logs heap teardown.
func (l *Logger) LogClose(live int, cycles uint64, err error) {
	if err != nil {
		l.Error("heap close failed",
			"live", live,
			"error", err,
		)
		return
	}
	l.Debug("heap closed",
		"live", live,
		"cycles", cycles,
	)
}
