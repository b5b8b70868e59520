// internal/events/handler.go
package events

import (
	"context"
)

// Handler обрабатывает событие. Обработчики вызываются последовательно из
// одной горутины шины, поэтому не должны блокироваться надолго.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription отменяет подписку на один тип событий.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	bus *Bus
	typ EventType
	id  string
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.typ, s.id)
}
