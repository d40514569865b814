package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PrometheusObserver struct {
	cacheLookups       *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	auditEntries       *prometheus.CounterVec
}

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "togglr_cache_lookups_total",
		Help: "Lookup cache reads by region and result",
	}, []string{"region", "result"})
	cacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "togglr_cache_invalidations_total",
		Help: "Bulk invalidations by region",
	}, []string{"region"})
	auditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "togglr_audit_entries_total",
		Help: "Audit entries by action and outcome",
	}, []string{"action", "outcome"})
)

func NewPrometheusObserver() *PrometheusObserver {
	return &PrometheusObserver{
		cacheLookups:       cacheLookups,
		cacheInvalidations: cacheInvalidations,
		auditEntries:       auditEntries,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (p *PrometheusObserver) RecordHit(region string) {
	p.cacheLookups.WithLabelValues(region, "hit").Inc()
}

func (p *PrometheusObserver) RecordMiss(region string) {
	p.cacheLookups.WithLabelValues(region, "miss").Inc()
}

func (p *PrometheusObserver) RecordInvalidation(region string) {
	p.cacheInvalidations.WithLabelValues(region).Inc()
}

func (p *PrometheusObserver) RecordAppend(action string) {
	p.auditEntries.WithLabelValues(action, "written").Inc()
}

func (p *PrometheusObserver) RecordFailure(action string) {
	p.auditEntries.WithLabelValues(action, "failed").Inc()
}
