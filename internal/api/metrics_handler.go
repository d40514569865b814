package api

import (
	"net/http"

	"github.com/gdrocha-io/togglr-backend/internal/dto/resp"
	"github.com/gdrocha-io/togglr-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	service service.MetricsProvider
}

func NewMetricsHandler(service service.MetricsProvider) *MetricsHandler {
	return &MetricsHandler{service: service}
}

func (h *MetricsHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.FromDashboard(dashboard))
}
