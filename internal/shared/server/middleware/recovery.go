package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"interntrack-backend/internal/shared/metrics"
	"interntrack-backend/internal/shared/server/respond"
	"interntrack-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 internal_error response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"route":      c.FullPath(),
				"method":     c.Request.Method,
			}
			if id := UserIDFromContext(c); id != "" {
				fields["user_id"] = id
			}
			telemetry.Error("http.panic", fields)
			metrics.IncPanic()
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
		}()
		c.Next()
	}
}
