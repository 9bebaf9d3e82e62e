package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"tripchat/tools/errs"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token != "good-token" {
		return nil, errs.ErrAuthFailed.WithDetail("bad token")
	}
	return &Identity{ID: "alice", Username: "alice"}, nil
}

func testServer() *Server {
	rt, _, _, _ := newTestRouter(tripDB())
	return NewServer(Conf{GatewayID: "gw-test"}, fakeVerifier{}, NewRegistry(), rt, nil)
}

func wsHandshake(s *Server, mutate func(*http.Request)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", s.HandleWS)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	w := wsHandshake(testServer(), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	w := wsHandshake(testServer(), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "stale"})
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHandshakeRefreshFallback(t *testing.T) {
	// expired access token, valid refresh token: the second candidate
	// must be tried before rejecting
	s := testServer()
	identity, err := s.authenticate(func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "stale"})
		r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "good-token"})
		return r
	}())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.ID != "alice" {
		t.Fatalf("identity = %+v", identity)
	}
}
