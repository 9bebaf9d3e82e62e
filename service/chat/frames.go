package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tripchat/tools/errs"
)

// Socket event names, shared with the web client.
const (
	// inbound
	EvtRoomJoin      = "room:join"
	EvtRoomLeave     = "room:leave"
	EvtMessageSend   = "message:send"
	EvtMessageDelete = "message:delete" // also broadcast outbound
	EvtTypingStart   = "typing:start"   // also broadcast outbound
	EvtTypingStop    = "typing:stop"    // also broadcast outbound

	// outbound
	EvtUserOnline     = "user:online"
	EvtUserOffline    = "user:offline"
	EvtMessageReceive = "message:receive"
	EvtNotification   = "notification"
	EvtAck            = "ack"
	EvtError          = "error"
)

// Frame is the wire envelope for every event in both directions.
type Frame struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame missing event")
	}
	return &f, nil
}

// MarshalFrame encodes an outbound event with a typed payload.
func MarshalFrame(event string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("payload must be an object: %w", err)
	}
	return json.Marshal(Frame{Event: event, Payload: m})
}

// ---- inbound payloads ----

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID        string `json:"roomId"`
	Content       string `json:"content"`
	Type          string `json:"type,omitempty"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// ---- outbound payloads ----

type PresenceEvent struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Ts     int64  `json:"ts"`
}

type TypingEvent struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type MessageDeleteEvent struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

type AckEvent struct {
	Op     string `json:"op"`
	RoomID string `json:"roomId,omitempty"`
}

type ErrorEvent struct {
	Op   string `json:"op"`
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func buildPresenceEvent(event, roomID, userID string) []byte {
	data, _ := MarshalFrame(event, PresenceEvent{
		RoomID: roomID,
		UserID: userID,
		Ts:     time.Now().UnixMilli(),
	})
	return data
}

func buildAckFrame(op, roomID string) []byte {
	data, _ := MarshalFrame(EvtAck, AckEvent{Op: op, RoomID: roomID})
	return data
}

// buildErrorFrame answers the originating connection only; failed
// operations are never broadcast.
func buildErrorFrame(op string, err error) []byte {
	msg := "internal error"
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		msg = ce.Msg
		if ce.Detail != "" {
			msg += ": " + ce.Detail
		}
	} else if err != nil {
		msg = err.Error()
	}
	data, _ := MarshalFrame(EvtError, ErrorEvent{
		Op:   op,
		Code: errs.CodeOf(err),
		Msg:  msg,
	})
	return data
}
