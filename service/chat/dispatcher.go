package chat

import (
	"context"

	"tripchat/tools/errs"
)

// Handler processes one inbound event type.
type Handler interface {
	Event() string
	Handle(ctx context.Context, c *Conn, payload map[string]any) error
}

// Dispatcher routes inbound frames to their handler by event name.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Dispatch(ctx context.Context, c *Conn, f *Frame) error {
	h, ok := d.handlers[f.Event]
	if !ok {
		return errs.ErrArgs.WithDetail("unknown event " + f.Event)
	}
	return h.Handle(ctx, c, f.Payload)
}
