package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordListing(SourceCache)
	m.RecordListing(SourceCache)
	m.RecordListing(SourceRemote)
	m.RecordCacheMiss()
	m.RecordIndexOp(OpAdd)
	m.RecordDegraded(OpGet)
	m.RecordSwapConflict()
	m.RecordHydrated(4)
	m.RecordHydrationFailure()
	m.ObserveRemote("list", time.Now())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ListingsTotal.WithLabelValues(SourceCache)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ListingsTotal.WithLabelValues(SourceRemote)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IndexOpsTotal.WithLabelValues(OpAdd)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheDegraded.WithLabelValues(OpGet)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SwapConflicts))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.HydratedItems))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HydrationFailures))

	count, err := testutil.GatherAndCount(reg, "bucketcache_remote_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordListing(SourceCache)
		m.RecordCacheMiss()
		m.RecordIndexOp(OpGet)
		m.RecordDegraded(OpGet)
		m.RecordSwapConflict()
		m.RecordHydrated(1)
		m.RecordHydrationFailure()
		m.ObserveRemote("list", time.Now())
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = New(reg)
	assert.Panics(t, func() { _ = New(reg) })
}
