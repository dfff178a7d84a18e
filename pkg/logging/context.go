package logging

import "context"

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request ID on inbound and outbound HTTP calls.
const RequestIDHeader = "X-Request-Id"

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID from ctx, or "" if none is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
