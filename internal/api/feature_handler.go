package api

import (
	"net/http"

	"github.com/gdrocha-io/togglr-backend/internal/dto/req"
	"github.com/gdrocha-io/togglr-backend/internal/dto/resp"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type FeatureHandler struct {
	service service.FeatureProvider
}

func NewFeatureHandler(service service.FeatureProvider) *FeatureHandler {
	return &FeatureHandler{service: service}
}

// ListFeatures returns every feature, or the features of one
// namespace/environment pair when both are given.
func (h *FeatureHandler) ListFeatures(c *gin.Context) {
	var q req.ScopeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if (q.Namespace == "") != (q.Environment == "") {
		badRequest(c, "namespace and environment must be given together")
		return
	}

	ctx := c.Request.Context()
	var (
		features []model.Feature
		err      error
	)
	if q.Namespace != "" {
		features, err = h.service.GetFeaturesByScope(ctx, q.Namespace, q.Environment)
	} else {
		features, err = h.service.GetAllFeatures(ctx)
	}
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.FromFeatures(features))
}

func (h *FeatureHandler) GetEnabledFeatures(c *gin.Context) {
	var q req.ScopeQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.Namespace == "" || q.Environment == "" {
		badRequest(c, "namespace and environment are required")
		return
	}

	features, err := h.service.GetEnabledFeatures(c.Request.Context(), q.Namespace, q.Environment)
	if err != nil {
		handleError(c, err)
		return
	}
	logger.Debug("enabled features served",
		zap.String("namespace", q.Namespace),
		zap.String("environment", q.Environment),
		zap.Int("count", len(features)))
	c.JSON(http.StatusOK, resp.FromFeatures(features))
}

func (h *FeatureHandler) GetFeature(c *gin.Context) {
	var q req.GetFeatureRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "name, namespace and environment are required")
		return
	}

	feature, err := h.service.GetFeature(c.Request.Context(), q.Name, q.Namespace, q.Environment)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.FromFeature(feature))
}

func (h *FeatureHandler) CreateFeature(c *gin.Context) {
	var r req.CreateFeatureRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "JSON format error")
		return
	}

	feature, err := h.service.CreateFeature(c.Request.Context(), service.CreateFeatureInput{
		Name:        r.Name,
		Namespace:   r.Namespace,
		Environment: r.Environment,
		Enabled:     *r.Enabled,
		Metadata:    datatypes.JSON(r.Metadata),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp.FromFeature(feature))
}

func (h *FeatureHandler) UpdateFeature(c *gin.Context) {
	var uri req.IDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid id")
		return
	}
	var r req.UpdateFeatureRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "JSON format error")
		return
	}

	feature, err := h.service.UpdateFeature(c.Request.Context(), uri.ID, service.UpdateFeatureInput{
		Enabled:  r.Enabled,
		Metadata: datatypes.JSON(r.Metadata),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.FromFeature(feature))
}

func (h *FeatureHandler) DeleteFeature(c *gin.Context) {
	var uri req.IDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid id")
		return
	}

	if err := h.service.DeleteFeature(c.Request.Context(), uri.ID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
