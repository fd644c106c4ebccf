// Package context carries per-factorization tracing values through
// context.Context so log lines from the coordinator and its workers can be
// correlated to one call.
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ctxKey is an unexported key type so values set here cannot collide with
// keys from other packages. Distinct constants keep the keys distinct;
// pointers to zero-size structs may alias.
type ctxKey int

const (
	requestIDKey ctxKey = iota
	operationKey
	startTimeKey
)

// WithRequestID adds a request ID to the context
func WithRequestID(parent context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(parent, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return ""
}

// WithOperation records the operation name (e.g. "factorize") on the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok {
		return op
	}
	return ""
}

// WithStartTime stamps the context with the operation start time
func WithStartTime(parent context.Context, start time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, start)
}

// GetStartTime retrieves the operation start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t, true
	}
	return time.Time{}, false
}

// Elapsed returns time since the context's start time, or zero when unset
func Elapsed(ctx context.Context) time.Duration {
	if t, ok := GetStartTime(ctx); ok {
		return time.Since(t)
	}
	return 0
}

// GenerateRequestID produces a fresh request identifier
func GenerateRequestID() string {
	return uuid.New().String()
}
