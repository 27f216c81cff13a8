package yocto

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with yocto-specific context.
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
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithField adds a field name to the logger.
func (l *Logger) WithField(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("field", name),
	}
}

// WithDocument adds a document id to the logger.
func (l *Logger) WithDocument(doc int) *Logger {
	return &Logger{
		Logger: l.Logger.With("document", doc),
	}
}

// WithSource adds the container source (path or blob name) to the logger.
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		Logger: l.Logger.With("source", source),
	}
}

// LogMerge logs a document merge.
func (l *Logger) LogMerge(ctx context.Context, doc, fields int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"document", doc,
			"fields", fields,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "merge completed",
			"document", doc,
			"fields", fields,
		)
	}
}

// LogBuild logs the freeze of a builder into a writable container.
func (l *Logger) LogBuild(ctx context.Context, docs, segments int, size int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"documents", docs,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"documents", docs,
			"segments", segments,
			"bytes", size,
			"elapsed", elapsed,
		)
	}
}

// LogOpen logs opening a container.
func (l *Logger) LogOpen(ctx context.Context, source string, docs int, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "database opened",
			"source", source,
			"documents", docs,
			"bytes", size,
		)
	}
}

// LogQuery logs a query execution.
func (l *Logger) LogQuery(ctx context.Context, matched, returned int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"matched", matched,
			"returned", returned,
			"elapsed", elapsed,
		)
	}
}
