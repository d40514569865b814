package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusObserver(t *testing.T) {
	obs := NewPrometheusObserver()

	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("features", "hit"))
	obs.RecordHit("features")
	obs.RecordMiss("features")
	obs.RecordInvalidation("metrics")
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("features", "hit")))

	failed := testutil.ToFloat64(auditEntries.WithLabelValues("UPDATE", "failed"))
	obs.RecordAppend("UPDATE")
	obs.RecordFailure("UPDATE")
	assert.Equal(t, failed+1, testutil.ToFloat64(auditEntries.WithLabelValues("UPDATE", "failed")))
}

func TestNop(t *testing.T) {
	var c CacheObserver = Nop{}
	var a AuditObserver = Nop{}
	c.RecordHit("features")
	a.RecordFailure("CREATE")
}
