package chat

import (
	"testing"

	"tripchat/tools/errs"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"room:join","payload":{"roomId":"trip-1"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Event != EvtRoomJoin {
		t.Fatalf("event = %q, want %q", f.Event, EvtRoomJoin)
	}
	if f.Payload["roomId"] != "trip-1" {
		t.Fatalf("roomId = %v, want trip-1", f.Payload["roomId"])
	}
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	if _, err := ParseFrame([]byte(`not json`)); err == nil {
		t.Fatal("garbage must not parse")
	}
	if _, err := ParseFrame([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("frame without event must not parse")
	}
}

func TestMarshalFrameRoundtrip(t *testing.T) {
	data, err := MarshalFrame(EvtTypingStart, TypingEvent{RoomID: "trip-1", UserID: "alice"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if f.Event != EvtTypingStart || f.Payload["userId"] != "alice" {
		t.Fatalf("roundtrip = %+v", f)
	}
}

func TestMarshalFrameRejectsNonObject(t *testing.T) {
	if _, err := MarshalFrame(EvtAck, "just a string"); err == nil {
		t.Fatal("scalar payload must be rejected")
	}
}

func TestBuildErrorFrame(t *testing.T) {
	data := buildErrorFrame("message:send", errs.ErrForbidden.WithDetail("join the room before sending"))
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Event != EvtError {
		t.Fatalf("event = %q, want %q", f.Event, EvtError)
	}
	if code, _ := f.Payload["code"].(float64); int(code) != errs.ForbiddenError {
		t.Fatalf("code = %v, want %d", f.Payload["code"], errs.ForbiddenError)
	}
	if f.Payload["op"] != "message:send" {
		t.Fatalf("op = %v", f.Payload["op"])
	}
}
