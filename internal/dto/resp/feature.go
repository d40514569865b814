package resp

import (
	"encoding/json"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/model"
	v1 "github.com/gdrocha-io/togglr-backend/pkg/api/v1"
)

func FromFeature(f *model.Feature) v1.Feature {
	out := v1.Feature{
		ID:          f.ID,
		Name:        f.Name,
		Namespace:   f.Namespace.Name,
		Environment: f.Environment.Name,
		Enabled:     f.Enabled,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if len(f.Metadata) > 0 {
		out.Metadata = json.RawMessage(f.Metadata)
	}
	return out
}

func FromFeatures(features []model.Feature) []v1.Feature {
	out := make([]v1.Feature, 0, len(features))
	for i := range features {
		out = append(out, FromFeature(&features[i]))
	}
	return out
}

func FromNamespace(ns *model.Namespace, counts model.FeatureCounts) v1.Scope {
	return scope(ns.ID, ns.Name, ns.CreatedAt, counts)
}

func FromEnvironment(env *model.Environment, counts model.FeatureCounts) v1.Scope {
	return scope(env.ID, env.Name, env.CreatedAt, counts)
}

func FromDashboard(d *model.Dashboard) v1.Dashboard {
	return v1.Dashboard{
		TotalFeatures:     d.TotalFeatures,
		ActiveFeatures:    d.ActiveFeatures,
		TotalEnvironments: d.TotalEnvironments,
		TotalNamespaces:   d.TotalNamespaces,
	}
}

func scope(id uint64, name string, createdAt time.Time, counts model.FeatureCounts) v1.Scope {
	return v1.Scope{
		ID:               id,
		Name:             name,
		CreatedAt:        createdAt,
		TotalFeatures:    counts.Total,
		ActiveFeatures:   counts.Active,
		InactiveFeatures: counts.Inactive,
	}
}
