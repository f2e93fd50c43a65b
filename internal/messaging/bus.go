// Package messaging defines the actor message-bus contract the harbor and
// worker handlers communicate over, plus one in-process implementation.
// This is the "messaging substrate" the ingestion pipeline treats as an
// external collaborator: real deployments would run harbor and worker as
// separate processes exchanging messages over a durable queue; InProcessBus
// is the minimal concrete substrate needed to make the pipeline runnable
// end-to-end without claiming to be that production runtime.
package messaging

import (
	"context"
	"time"
)

// Message is an envelope dispatched to exactly one named handler.
type Message struct {
	Name     string
	Payload  any
	ExpireAt time.Time // zero means "never expires"
}

// Expired reports whether the message's deadline has passed as of now.
func (m Message) Expired(now time.Time) bool {
	return !m.ExpireAt.IsZero() && now.After(m.ExpireAt)
}

// Handler processes one message. Handlers must be idempotent: the bus may
// redeliver a Tell message after a failure, and ordering across messages is
// not guaranteed.
type Handler func(ctx context.Context, payload any) error

// Bus is the contract actor handlers publish through. Tell is at-least-once:
// the bus retries failed handler invocations. Hope is best-effort: it may be
// silently dropped under load or after ExpireAt passes, and is never
// retried.
type Bus interface {
	// RegisterHandler binds name to fn. Registering the same name twice
	// replaces the previous handler.
	RegisterHandler(name string, fn Handler)

	// Tell delivers payload to the handler registered for name at least
	// once, retrying handler errors up to the bus's configured limit.
	Tell(ctx context.Context, name string, payload any) error

	// Hope delivers payload to the handler registered for name on a
	// best-effort basis: never retried, and dropped outright once expireAt
	// passes or the bus's in-flight capacity is exhausted. A zero expireAt
	// means the message never expires on its own, but Hope is still
	// droppable under load.
	Hope(ctx context.Context, name string, payload any, expireAt time.Time)

	// Shutdown waits for in-flight handler invocations to finish or ctx to
	// be done, whichever comes first.
	Shutdown(ctx context.Context) error
}
