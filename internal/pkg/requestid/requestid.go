// Package requestid carries a correlation id through a context.Context so
// log lines emitted across a single message's journey through the bus (worker
// handler -> harbor handler -> retry) can be tied together.
package requestid

import "context"

type contextKey string

const key contextKey = "request_id"

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key, id)
}

// FromContext returns the request id carried by ctx, or "" if none.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(key).(string)
	return id
}
