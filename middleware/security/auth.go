package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by Middleware; downstream handlers read these.
const (
	CtxUserIDKey = "authUserID"
	CtxTokenKey  = "authToken"
)

// VerifyFunc validates a bearer credential and returns the owning user id.
type VerifyFunc func(token string) (string, error)

// Middleware enforces a bearer credential on the control-plane routes.
// Absence or failure yields 401 {error: "..."} without touching the
// connection registry.
func Middleware(verify VerifyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		userID, err := verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}

// UserID returns the authenticated user id placed by Middleware.
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserIDKey)
	s, _ := v.(string)
	return s
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz != "" && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	// SSE clients cannot set headers on EventSource; allow ?token= fallback.
	return strings.TrimSpace(c.Query("token"))
}
