package middleware

import (
	"net/http"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/service"
	v1 "github.com/gdrocha-io/togglr-backend/pkg/api/v1"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinZapLogger writes one access line per request, tagged with the trace id
// and the actor the audit trail will record. Server errors log at error
// level and client errors at warn.
func GinZapLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		actor := service.CurrentActor(c.Request.Context())
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("trace_id", c.GetString(traceIDKey)),
			zap.String("actor", actor.Name),
			zap.String("actor_kind", string(actor.Kind)),
			zap.Duration("latency", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

// GinZapRecovery turns a handler panic into a 500 with the usual error body.
func GinZapRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("trace_id", c.GetString(traceIDKey)),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, v1.Error{
					Error:     http.StatusText(http.StatusInternalServerError),
					Message:   "unexpected server error",
					Status:    http.StatusInternalServerError,
					Timestamp: time.Now(),
				})
			}
		}()
		c.Next()
	}
}
