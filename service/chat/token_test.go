package chat

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func wsRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestExtractTokensPrecedence(t *testing.T) {
	r := wsRequest(t, "/ws?token=from-query")
	r.Header.Set("Authorization", "Bearer from-header")
	r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-access-cookie"})
	r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "from-refresh-cookie"})

	got := ExtractTokens(r)
	want := []string{"from-header", "from-query", "from-access-cookie", "from-refresh-cookie"}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractTokensCookiesOnly(t *testing.T) {
	r := wsRequest(t, "/ws")
	r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "acc"})
	r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "ref"})

	got := ExtractTokens(r)
	if len(got) != 2 || got[0] != "acc" || got[1] != "ref" {
		t.Fatalf("got %v, want [acc ref]", got)
	}
}

func TestExtractTokensNone(t *testing.T) {
	if got := ExtractTokens(wsRequest(t, "/ws")); len(got) != 0 {
		t.Fatalf("got %v, want none", got)
	}
}

func TestExtractTokensIgnoresNonBearer(t *testing.T) {
	r := wsRequest(t, "/ws")
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := ExtractTokens(r); len(got) != 0 {
		t.Fatalf("non-bearer auth produced candidates: %v", got)
	}
}
