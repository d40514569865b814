package v1

import (
	"encoding/json"
	"time"
)

// Feature is the wire form of a feature flag. Namespace and Environment are
// names, not ids.
type Feature struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Namespace   string          `json:"namespace"`
	Environment string          `json:"environment"`
	Enabled     bool            `json:"enabled"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Scope describes a namespace or an environment together with the number of
// features attached to it.
type Scope struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
	TotalFeatures    int64     `json:"total_features"`
	ActiveFeatures   int64     `json:"active_features"`
	InactiveFeatures int64     `json:"inactive_features"`
}

type Dashboard struct {
	TotalFeatures     int64 `json:"total_features"`
	ActiveFeatures    int64 `json:"active_features"`
	TotalEnvironments int64 `json:"total_environments"`
	TotalNamespaces   int64 `json:"total_namespaces"`
}

// Error is the body of every non-2xx API response.
type Error struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Token is returned by the login endpoints.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}
