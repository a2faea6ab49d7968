package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"interntrack-backend/internal/shared/tracing"
)

const (
	requestIDKey = "requestId"
	traceIDKey   = "traceId"

	headerRequestID = "X-Request-Id"
	headerTraceID   = "X-Trace-Id"
)

// RequestID tags the request with an id, reusing a sane inbound X-Request-Id.
// When a span is active its trace id is echoed in X-Trace-Id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(headerRequestID, id)

		if traceID := tracing.TraceID(c.Request.Context()); traceID != "" {
			c.Set(traceIDKey, traceID)
			c.Writer.Header().Set(headerTraceID, traceID)
		}
		c.Next()
	}
}

func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}
