package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	correlationIDCtxKey contextKey = "correlation_id"
	requestIDCtxKey     contextKey = "request_id"
)

// Attribute keys used in log records.
const (
	CorrelationIDKey = "correlation_id"
	RequestIDKey     = "request_id"
)

// RequestIDHeader carries a request ID across the local proxy.
const RequestIDHeader = "X-Request-ID"

// WithCorrelationID tags ctx with the ID shared by everything one command or
// drain pass does. An empty id gets a fresh UUID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withID(ctx, correlationIDCtxKey, id)
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return idFrom(ctx, correlationIDCtxKey)
}

// WithRequestID tags ctx with the ID of one proxied request. An empty id
// gets a fresh UUID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withID(ctx, requestIDCtxKey, id)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return idFrom(ctx, requestIDCtxKey)
}

func withID(ctx context.Context, key contextKey, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key).(string)
	return id
}
