package chat

import (
	"context"

	"tripchat/tools/decode"
	"tripchat/tools/errs"
)

// Inbound event handlers. Each decodes its payload, delegates to the
// router and acks the originating connection; errors are turned into
// error frames by the read loop.

type joinHandler struct{ rt *Router }

func (h *joinHandler) Event() string { return EvtRoomJoin }
func (h *joinHandler) Handle(ctx context.Context, c *Conn, payload map[string]any) error {
	p, err := decode.DecodeMap[RoomPayload](payload)
	if err != nil {
		return errs.ErrArgs.WithDetail(err.Error())
	}
	if err := h.rt.Join(ctx, c, p.RoomID); err != nil {
		return err
	}
	return c.Send(buildAckFrame(EvtRoomJoin, p.RoomID))
}

type leaveHandler struct{ rt *Router }

func (h *leaveHandler) Event() string { return EvtRoomLeave }
func (h *leaveHandler) Handle(ctx context.Context, c *Conn, payload map[string]any) error {
	p, err := decode.DecodeMap[RoomPayload](payload)
	if err != nil {
		return errs.ErrArgs.WithDetail(err.Error())
	}
	if err := h.rt.Leave(ctx, c, p.RoomID); err != nil {
		return err
	}
	return c.Send(buildAckFrame(EvtRoomLeave, p.RoomID))
}

type sendMessageHandler struct{ rt *Router }

func (h *sendMessageHandler) Event() string { return EvtMessageSend }
func (h *sendMessageHandler) Handle(ctx context.Context, c *Conn, payload map[string]any) error {
	p, err := decode.DecodeMap[SendMessagePayload](payload)
	if err != nil {
		return errs.ErrArgs.WithDetail(err.Error())
	}
	// The sender receives the hydrated message through the room
	// broadcast like everyone else; the ack only confirms acceptance.
	if _, err := h.rt.SendMessage(ctx, c, *p); err != nil {
		return err
	}
	return c.Send(buildAckFrame(EvtMessageSend, p.RoomID))
}

type deleteMessageHandler struct{ rt *Router }

func (h *deleteMessageHandler) Event() string { return EvtMessageDelete }
func (h *deleteMessageHandler) Handle(ctx context.Context, c *Conn, payload map[string]any) error {
	p, err := decode.DecodeMap[DeleteMessagePayload](payload)
	if err != nil {
		return errs.ErrArgs.WithDetail(err.Error())
	}
	if err := h.rt.DeleteMessage(ctx, c, p.MessageID); err != nil {
		return err
	}
	return c.Send(buildAckFrame(EvtMessageDelete, ""))
}

type typingHandler struct {
	rt     *Router
	typing bool
}

func (h *typingHandler) Event() string {
	if h.typing {
		return EvtTypingStart
	}
	return EvtTypingStop
}

func (h *typingHandler) Handle(ctx context.Context, c *Conn, payload map[string]any) error {
	p, err := decode.DecodeMap[RoomPayload](payload)
	if err != nil {
		return errs.ErrArgs.WithDetail(err.Error())
	}
	return h.rt.SetTyping(ctx, c, p.RoomID, h.typing)
}
