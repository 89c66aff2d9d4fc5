// Package requestctx carries request-scoped tracing values through
// context without the transport layer leaking into domain packages.
package requestctx

import "context"

type idKey struct{}

// WithRequestID returns a child context tagged with the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, idKey{}, id)
}

// RequestID returns the request id stored on the context, or "" when the
// context never passed through the request-id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(idKey{}).(string)
	return id
}
