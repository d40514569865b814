package req

import "encoding/json"

type CreateFeatureRequest struct {
	Name        string          `json:"name" binding:"required,max=128"`
	Namespace   string          `json:"namespace" binding:"required,max=128"`
	Environment string          `json:"environment" binding:"required,max=128"`
	Enabled     *bool           `json:"enabled" binding:"required"`
	Metadata    json.RawMessage `json:"metadata"`
}

// UpdateFeatureRequest leaves absent fields untouched.
type UpdateFeatureRequest struct {
	Enabled  *bool           `json:"enabled"`
	Metadata json.RawMessage `json:"metadata"`
}

type GetFeatureRequest struct {
	Name        string `form:"name" binding:"required"`
	Namespace   string `form:"namespace" binding:"required"`
	Environment string `form:"environment" binding:"required"`
}

// ScopeQuery selects a namespace/environment pair. Both are optional on the
// list endpoint and required on /features/enabled.
type ScopeQuery struct {
	Namespace   string `form:"namespace"`
	Environment string `form:"environment"`
}

type IDUri struct {
	ID uint64 `uri:"id" binding:"required"`
}

// ScopeRequest is the body for creating or renaming a namespace or an
// environment.
type ScopeRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}
