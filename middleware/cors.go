package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS permits browser clients on other origins to reach the SSE stream and
// the control-plane endpoints. WebSocket upgrades are exempt from CORS; the
// upgrader's CheckOrigin covers those.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
