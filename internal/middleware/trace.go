package middleware

import (
	"github.com/gdrocha-io/togglr-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceHeader = "X-Trace-ID"
	traceIDKey  = "TraceID"
)

// TraceMiddleware assigns the request its trace id and puts the id and the
// client IP on the request context.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set(traceIDKey, traceID)
		c.Writer.Header().Set(TraceHeader, traceID)

		ctx := service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
			IP:      c.ClientIP(),
			TraceID: traceID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
