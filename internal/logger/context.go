package logger

import "context"

// ctxKey keys context values set by this package without colliding with
// keys from other packages.
type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores the request correlation ID on the context. HTTP
// middleware sets it per request and the queue consumers set it per
// delivery, so log lines from either path carry the same field.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the correlation ID from ctx, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
