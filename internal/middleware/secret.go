package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
)

// SecretAuth guards a route group with a shared-secret header (the cron
// trigger and the admin surface each get their own header/secret pair).
// An empty configured secret rejects everything rather than failing open.
func SecretAuth(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(header)
		if secret == "" || got == "" ||
			subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
