// internal/events/subscription.go
package events

import (
	"context"
	"sync"
)

// Handler receives bus events. Handlers run on the dispatcher goroutine
// and must return quickly.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function serve as a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Subscription is returned by Subscribe. Unsubscribe may be called more
// than once.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	once sync.Once
	bus  *Bus
	typ  EventType
	id   string
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.unsubscribe(s.id, s.typ) })
}
