package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ActorMiddleware records who is acting from the X-User-ID and X-User-Email
// headers set by the gateway. Both are optional; an anonymous actor is
// recorded as an empty string.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_id") == "" {
			c.Set("user_id", strings.TrimSpace(c.GetHeader("X-User-ID")))
		}
		if c.GetString("user_email") == "" {
			c.Set("user_email", strings.TrimSpace(c.GetHeader("X-User-Email")))
		}
		c.Next()
	}
}

// GetUserID retrieves the acting user's ID from gin context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
