package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/service"
	v1 "github.com/gdrocha-io/togglr-backend/pkg/api/v1"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func writeError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, v1.Error{
		Error:     kind,
		Message:   message,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func badRequest(c *gin.Context, message string) {
	writeError(c, http.StatusBadRequest, "BadRequest", message)
}

// handleError maps service errors onto HTTP statuses.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		logger.Warn("entity not found", zap.String("path", c.FullPath()), zap.Error(err))
		writeError(c, http.StatusNotFound, "NotFound", err.Error())
	case errors.Is(err, service.ErrConstraintViolation):
		logger.Warn("constraint violation", zap.String("path", c.FullPath()), zap.Error(err))
		writeError(c, http.StatusBadRequest, "BadRequest", constraintMessage(c, err))
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrSessionExpired):
		writeError(c, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "InternalServerError", err.Error())
	}
}

// constraintMessage hides driver details. Refused deletes already carry a
// readable reason.
func constraintMessage(c *gin.Context, err error) string {
	if c.Request.Method == http.MethodDelete {
		return err.Error()
	}
	if c.FullPath() == "/api/v1/features" {
		return "Feature already exists for this namespace and environment"
	}
	return "Data integrity constraint violation"
}
