package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tripchat/service/chat"
	"tripchat/service/store"
	"tripchat/tools/errs"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (*chat.Identity, error) {
	if token != "good-token" {
		return nil, errs.ErrAuthFailed.WithDetail("bad token")
	}
	return &chat.Identity{ID: "alice", Username: "alice"}, nil
}

type fakeRooms struct{}

func (fakeRooms) Exists(_ context.Context, roomID string) (bool, error) {
	return roomID == "trip-1", nil
}

func (fakeRooms) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	return roomID == "trip-1" && userID == "alice", nil
}

type fakeLister struct {
	lastLimit int64
	msgs      []*store.Message
}

func (f *fakeLister) ListByRoom(_ context.Context, roomID string, limit int64) ([]*store.Message, error) {
	f.lastLimit = limit
	return f.msgs, nil
}

func testEngine(lister *fakeLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, Deps{
		Verifier:     fakeVerifier{},
		Gateway:      nil, // websocket route is not exercised here
		Rooms:        fakeRooms{},
		Messages:     lister,
		HistoryLimit: 50,
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(testEngine(&fakeLister{}), "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHistoryRequiresAuth(t *testing.T) {
	r := testEngine(&fakeLister{})
	if w := get(r, "/rooms/trip-1/messages", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}
	if w := get(r, "/rooms/trip-1/messages", "bad"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", w.Code)
	}
}

func TestHistoryUnknownRoom(t *testing.T) {
	w := get(testEngine(&fakeLister{}), "/rooms/trip-404/messages", "good-token")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHistoryNonMember(t *testing.T) {
	// fakeRooms only grants alice membership of trip-1; trip-2 does not exist,
	// so use a room that exists but without membership
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, Deps{
		Verifier: fakeVerifier{},
		Rooms:    roomNoMember{},
		Messages: &fakeLister{},
	})
	w := get(r, "/rooms/trip-1/messages", "good-token")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

type roomNoMember struct{}

func (roomNoMember) Exists(context.Context, string) (bool, error) { return true, nil }
func (roomNoMember) IsMember(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestHistoryListsMessages(t *testing.T) {
	lister := &fakeLister{msgs: []*store.Message{
		{RoomID: "trip-1", SenderID: "alice", Content: "newest", CreatedAt: time.Now()},
		{RoomID: "trip-1", SenderID: "bob", Content: "older", CreatedAt: time.Now().Add(-time.Minute)},
	}}
	w := get(testEngine(lister), "/rooms/trip-1/messages", "good-token")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if lister.lastLimit != 50 {
		t.Fatalf("limit = %d, want default 50", lister.lastLimit)
	}

	var body struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(body.Messages))
	}
}

func TestHistoryLimitParam(t *testing.T) {
	lister := &fakeLister{}
	r := testEngine(lister)

	if w := get(r, "/rooms/trip-1/messages?limit=10", "good-token"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if lister.lastLimit != 10 {
		t.Fatalf("limit = %d, want 10", lister.lastLimit)
	}

	// requested limit above the cap is clamped
	if w := get(r, "/rooms/trip-1/messages?limit=500", "good-token"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if lister.lastLimit != 50 {
		t.Fatalf("limit = %d, want clamped 50", lister.lastLimit)
	}

	if w := get(r, "/rooms/trip-1/messages?limit=zero", "good-token"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: status = %d, want 400", w.Code)
	}
}
