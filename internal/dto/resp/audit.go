package resp

import "github.com/gdrocha-io/togglr-backend/internal/model"

// AuditPage is a newest-first page of audit entries.
type AuditPage struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}
