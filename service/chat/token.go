package chat

import (
	"net/http"
	"strings"
)

// Cookie names set by the account service's login flow.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// ExtractTokens pulls credential candidates from the handshake request
// in a fixed precedence: explicit auth field first (Authorization
// bearer header, then the token query parameter browsers use when they
// cannot set headers on a websocket dial), then the access-token
// cookie, then the refresh-token cookie. The verifier tries them in
// order, which preserves the access-then-refresh fallback.
func ExtractTokens(r *http.Request) []string {
	var out []string

	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			if tok := strings.TrimSpace(authz[len("bearer "):]); tok != "" {
				out = append(out, tok)
			}
		}
	}
	if tok := strings.TrimSpace(r.URL.Query().Get("token")); tok != "" {
		out = append(out, tok)
	}
	if ck, err := r.Cookie(AccessTokenCookie); err == nil && ck.Value != "" {
		out = append(out, ck.Value)
	}
	if ck, err := r.Cookie(RefreshTokenCookie); err == nil && ck.Value != "" {
		out = append(out, ck.Value)
	}
	return out
}
