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

type NamespaceHandler struct {
	service service.NamespaceProvider
}

func NewNamespaceHandler(service service.NamespaceProvider) *NamespaceHandler {
	return &NamespaceHandler{service: service}
}

func (h *NamespaceHandler) ListNamespaces(c *gin.Context) {
	ctx := c.Request.Context()
	namespaces, err := h.service.ListNamespaces(ctx)
	if err != nil {
		handleError(c, err)
		return
	}

	out := make([]v1.Scope, 0, len(namespaces))
	for i := range namespaces {
		counts, err := h.service.NamespaceFeatureCounts(ctx, namespaces[i].ID)
		if err != nil {
			handleError(c, err)
			return
		}
		out = append(out, resp.FromNamespace(&namespaces[i], counts))
	}
	c.JSON(http.StatusOK, out)
}

func (h *NamespaceHandler) GetNamespace(c *gin.Context) {
	var uri req.IDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid id")
		return
	}

	ns, err := h.service.GetNamespace(c.Request.Context(), uri.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respond(c, http.StatusOK, ns)
}

func (h *NamespaceHandler) CreateNamespace(c *gin.Context) {
	var r req.ScopeRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "name is required")
		return
	}

	ns, err := h.service.CreateNamespace(c.Request.Context(), r.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, ns)
}

func (h *NamespaceHandler) UpdateNamespace(c *gin.Context) {
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

	ns, err := h.service.UpdateNamespace(c.Request.Context(), uri.ID, r.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respond(c, http.StatusOK, ns)
}

func (h *NamespaceHandler) DeleteNamespace(c *gin.Context) {
	var uri req.IDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid id")
		return
	}

	if err := h.service.DeleteNamespace(c.Request.Context(), uri.ID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NamespaceHandler) respond(c *gin.Context, status int, ns *model.Namespace) {
	counts, err := h.service.NamespaceFeatureCounts(c.Request.Context(), ns.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(status, resp.FromNamespace(ns, counts))
}
