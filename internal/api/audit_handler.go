package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gdrocha-io/togglr-backend/internal/dto/req"
	"github.com/gdrocha-io/togglr-backend/internal/dto/resp"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// AuditReader is the read side of the audit log.
type AuditReader interface {
	Query(ctx context.Context, filter repository.AuditFilter, page repository.PageRequest) ([]model.AuditLog, int64, error)
	ListAll(ctx context.Context, page repository.PageRequest) ([]model.AuditLog, int64, error)
}

type AuditHandler struct {
	audit AuditReader
}

func NewAuditHandler(audit AuditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	var q req.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid paging")
		return
	}

	page := pageOf(q)
	items, total, err := h.audit.ListAll(c.Request.Context(), page)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.AuditPage{Items: items, Total: total, Page: page.Page, Size: page.Size})
}

// GetFeatureAuditLogs returns the history of one feature, optionally narrowed
// by action, actor and data source.
func (h *AuditHandler) GetFeatureAuditLogs(c *gin.Context) {
	var uri req.FeatureAuditUri
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "invalid feature id")
		return
	}
	var q req.FeatureAuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid params")
		return
	}

	filter, err := featureFilter(uri.FeatureID, q)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	h.query(c, filter, pageOf(q.PageQuery))
}

func (h *AuditHandler) GetEntityAuditLogs(c *gin.Context) {
	var q req.EntityAuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "entity_type and entity_id are required")
		return
	}

	kind := model.EntityKind(strings.ToUpper(q.EntityType))
	switch kind {
	case model.EntityFeature, model.EntityNamespace, model.EntityEnvironment:
	default:
		badRequest(c, fmt.Sprintf("unknown entity_type %q", q.EntityType))
		return
	}

	id := q.EntityID
	h.query(c, repository.AuditFilter{EntityKind: kind, EntityID: &id}, pageOf(q.PageQuery))
}

func (h *AuditHandler) query(c *gin.Context, filter repository.AuditFilter, page repository.PageRequest) {
	items, total, err := h.audit.Query(c.Request.Context(), filter, page)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.AuditPage{Items: items, Total: total, Page: page.Page, Size: page.Size})
}

func pageOf(q req.PageQuery) repository.PageRequest {
	return repository.PageRequest{Page: q.Page, Size: q.Size}.Normalize()
}

func featureFilter(featureID uint64, q req.FeatureAuditQuery) (repository.AuditFilter, error) {
	filter := repository.AuditFilter{
		EntityKind: model.EntityFeature,
		EntityID:   &featureID,
		Actor:      q.Username,
	}

	for _, raw := range q.Action {
		action := model.AuditAction(strings.ToUpper(raw))
		switch action {
		case model.ActionAccess, model.ActionCreate, model.ActionUpdate, model.ActionDelete:
			filter.Actions = append(filter.Actions, action)
		default:
			return filter, fmt.Errorf("unknown action %q", raw)
		}
	}

	if q.UserType != "" {
		kind := model.ActorKind(strings.ToUpper(q.UserType))
		switch kind {
		case model.ActorUser, model.ActorClient, model.ActorSystem:
			filter.ActorKind = kind
		default:
			return filter, fmt.Errorf("unknown user_type %q", q.UserType)
		}
	}

	if q.DataSource != "" {
		source := model.DataSource(strings.ToUpper(q.DataSource))
		switch source {
		case model.SourceCache, model.SourceDatabase:
			filter.DataSource = source
		default:
			return filter, fmt.Errorf("unknown data_source %q", q.DataSource)
		}
	}
	return filter, nil
}
