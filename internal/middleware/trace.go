package middleware

import (
	"sheltermail/internal/trace"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("TraceID", traceID)
		// Also on the request context so services see it downstream.
		c.Request = c.Request.WithContext(trace.NewContext(c.Request.Context(), traceID))
		c.Writer.Header().Set("X-Trace-ID", traceID)
		c.Next()
	}
}
