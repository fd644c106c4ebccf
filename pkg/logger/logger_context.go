package logger

import (
	"context"

	fcontext "github.com/fissio/fissio/pkg/context"
)

// LoggerContext extends the Logger interface with context-aware methods
// that pick up request tracing values automatically.
type LoggerContext interface {
	Logger
	InfoContext(ctx context.Context, message string, fields ...Field)
	ErrorContext(ctx context.Context, message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
}

// Ensure WorkerLogger implements LoggerContext
var _ LoggerContext = (*WorkerLogger)(nil)

// WithContext adapts any Logger to the LoggerContext interface. A logger
// that already implements it is returned as is; anything else is wrapped so
// the context tracing fields are merged ahead of each call's own fields.
func WithContext(log Logger) LoggerContext {
	if lc, ok := log.(LoggerContext); ok {
		return lc
	}
	return &contextAdapter{log}
}

type contextAdapter struct{ Logger }

func (a *contextAdapter) InfoContext(ctx context.Context, message string, fields ...Field) {
	a.Info(message, append(extractContextFields(ctx), fields...)...)
}

func (a *contextAdapter) ErrorContext(ctx context.Context, message string, fields ...Field) {
	a.Error(message, append(extractContextFields(ctx), fields...)...)
}

func (a *contextAdapter) WarnContext(ctx context.Context, message string, fields ...Field) {
	a.Warn(message, append(extractContextFields(ctx), fields...)...)
}

func (a *contextAdapter) DebugContext(ctx context.Context, message string, fields ...Field) {
	a.Debug(message, append(extractContextFields(ctx), fields...)...)
}

// InfoContext logs an info message with context tracing
func (l *WorkerLogger) InfoContext(ctx context.Context, message string, fields ...Field) {
	l.Info(message, append(extractContextFields(ctx), fields...)...)
}

// ErrorContext logs an error message with context tracing
func (l *WorkerLogger) ErrorContext(ctx context.Context, message string, fields ...Field) {
	l.Error(message, append(extractContextFields(ctx), fields...)...)
}

// WarnContext logs a warning message with context tracing
func (l *WorkerLogger) WarnContext(ctx context.Context, message string, fields ...Field) {
	l.Warn(message, append(extractContextFields(ctx), fields...)...)
}

// DebugContext logs a debug message with context tracing
func (l *WorkerLogger) DebugContext(ctx context.Context, message string, fields ...Field) {
	l.Debug(message, append(extractContextFields(ctx), fields...)...)
}

// extractContextFields pulls tracing fields out of the context
func extractContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}

	var fields []Field
	if id := fcontext.GetRequestID(ctx); id != "" {
		fields = append(fields, WithField("request_id", id))
	}
	if op := fcontext.GetOperation(ctx); op != "" {
		fields = append(fields, WithField("operation", op))
	}
	if elapsed := fcontext.Elapsed(ctx); elapsed > 0 {
		fields = append(fields, WithField("elapsed", elapsed))
	}
	return fields
}
