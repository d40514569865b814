package api

import (
	"net/http"

	"github.com/gdrocha-io/togglr-backend/internal/dto/req"
	"github.com/gdrocha-io/togglr-backend/internal/dto/resp"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	v1 "github.com/gdrocha-io/togglr-backend/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

type EnvironmentHandler struct {
	service service.EnvironmentProvider
}

func NewEnvironmentHandler(service service.EnvironmentProvider) *EnvironmentHandler {
	return &EnvironmentHandler{service: service}
}

func (h *EnvironmentHandler) ListEnvironments(c *gin.Context) {
	ctx := c.Request.Context()
	environments, err := h.service.ListEnvironments(ctx)
	if err != nil {
		handleError(c, err)
		return
	}

	out := make([]v1.Scope, 0, len(environments))
	for i := range environments {
		counts, err := h.service.EnvironmentFeatureCounts(ctx, environments[i].ID)
		if err != nil {
			handleError(c, err)
			return
		}
		out = append(out, resp.FromEnvironment(&environments[i], counts))
	}
	c.JSON(http.StatusOK, out)
}

func (h *EnvironmentHandler) GetEnvironment(c *gin.Context) {
	var uri req.IDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid id")
		return
	}

	env, err := h.service.GetEnvironment(c.Request.Context(), uri.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respond(c, http.StatusOK, env)
}

func (h *EnvironmentHandler) CreateEnvironment(c *gin.Context) {
	var r req.ScopeRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "name is required")
		return
	}

	env, err := h.service.CreateEnvironment(c.Request.Context(), r.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, env)
}

func (h *EnvironmentHandler) UpdateEnvironment(c *gin.Context) {
	var uri req.IDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid id")
		return
	}
	var r req.ScopeRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "name is required")
		return
	}

	env, err := h.service.UpdateEnvironment(c.Request.Context(), uri.ID, r.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respond(c, http.StatusOK, env)
}

func (h *EnvironmentHandler) DeleteEnvironment(c *gin.Context) {
	var uri req.IDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid id")
		return
	}

	if err := h.service.DeleteEnvironment(c.Request.Context(), uri.ID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EnvironmentHandler) respond(c *gin.Context, status int, env *model.Environment) {
	counts, err := h.service.EnvironmentFeatureCounts(c.Request.Context(), env.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(status, resp.FromEnvironment(env, counts))
}
