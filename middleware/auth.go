package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripchat/service/chat"
	"tripchat/tools/errs"
)

const identityKey = "tripchat.identity"

// Auth guards HTTP routes with the same credential sources the
// websocket handshake accepts, so a browser holding the auth cookies
// can hit the REST surface without extra plumbing.
func Auth(verifier chat.CredentialVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens := chat.ExtractTokens(c.Request)
		if len(tokens) == 0 {
			abortUnauthorized(c, "no token provided")
			return
		}
		var lastErr error
		for _, tok := range tokens {
			identity, err := verifier.Verify(c.Request.Context(), tok)
			if err == nil {
				c.Set(identityKey, identity)
				c.Next()
				return
			}
			lastErr = err
		}
		abortUnauthorized(c, lastErr.Error())
	}
}

// CurrentUser returns the identity Auth stashed on the context.
func CurrentUser(c *gin.Context) (*chat.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*chat.Identity)
	return identity, ok
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":   errs.AuthFailedError,
		"msg":    "authentication failed",
		"detail": detail,
	})
}
