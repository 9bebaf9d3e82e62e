package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"tripchat/logger"
)

// RequestLog logs each HTTP request once it completes. The websocket
// route logs its own lifecycle, so hijacked requests are skipped.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.IsWebsocket() {
			return
		}
		logger.Infof("[http] %s %s status=%d cost=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
