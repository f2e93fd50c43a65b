package worker

import (
	"context"
	"time"

	"rssant/internal/messaging"
)

// fakeBus is a minimal messaging.Bus recording every Tell/Hope for
// assertion; no mocking framework is used anywhere else in the codebase, so
// this hand-rolled fake matches the harbor package's own test style.
type fakeBus struct {
	handlers map[string]messaging.Handler
	tells    []fakeDelivery
	hopes    []fakeDelivery
	tellErr  error
}

type fakeDelivery struct {
	Name     string
	Payload  any
	ExpireAt time.Time
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]messaging.Handler)}
}

func (b *fakeBus) RegisterHandler(name string, fn messaging.Handler) {
	b.handlers[name] = fn
}

func (b *fakeBus) Tell(_ context.Context, name string, payload any) error {
	b.tells = append(b.tells, fakeDelivery{Name: name, Payload: payload})
	return b.tellErr
}

func (b *fakeBus) Hope(_ context.Context, name string, payload any, expireAt time.Time) {
	b.hopes = append(b.hopes, fakeDelivery{Name: name, Payload: payload, ExpireAt: expireAt})
}

func (b *fakeBus) Shutdown(_ context.Context) error {
	return nil
}
