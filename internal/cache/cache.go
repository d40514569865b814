// Package cache holds the read-through lookup cache used by the feature and
// metrics services. Entries live in named regions that are invalidated as a
// whole.
package cache

import (
	"context"
	"reflect"
	"strconv"
	"strings"
)

const (
	RegionFeatures = "features"
	RegionMetrics  = "metrics"
)

// Regions lists every region the services populate.
var Regions = []string{RegionFeatures, RegionMetrics}

const (
	AllFeaturesKey = "all"
	DashboardKey   = "dashboard"
)

// Store is a region-scoped key/value cache. Implementations never compute
// values on a miss and never block on a concurrent invalidation.
type Store interface {
	// Get copies the cached value into dst, a non-nil pointer, and reports
	// whether the key was present.
	Get(ctx context.Context, region, key string, dst any) bool
	// Contains reports presence without touching expiry or counters.
	Contains(ctx context.Context, region, key string) bool
	Put(ctx context.Context, region, key string, value any)
	// InvalidateRegion drops every entry of the named regions.
	InvalidateRegion(ctx context.Context, regions ...string)
}

// FeatureKey identifies a single feature by its natural key.
func FeatureKey(name, namespace, environment string) string {
	return composeKey("feature", name, namespace, environment)
}

func EnabledKey(namespace, environment string) string {
	return composeKey("enabled", namespace, environment)
}

func ScopeKey(namespace, environment string) string {
	return composeKey("scope", namespace, environment)
}

// composeKey writes kind followed by every part as <len>:<part>, so distinct
// part lists never share a key whatever characters the names contain.
func composeKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, part := range parts {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// assign copies src into the value dst points to.
func assign(dst, src any) bool {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return false
	}
	sv := reflect.ValueOf(src)
	if !sv.IsValid() {
		return false
	}
	target := dv.Elem()
	switch {
	case sv.Type().AssignableTo(target.Type()):
		target.Set(sv)
	case sv.Kind() == reflect.Pointer && !sv.IsNil() && sv.Elem().Type().AssignableTo(target.Type()):
		target.Set(sv.Elem())
	default:
		return false
	}
	return true
}
