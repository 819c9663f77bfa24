package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMetrics registers metrics with a private registry so tests do not
// collide on the global one.
func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetricsWithRegistry("test_catalog_search", prometheus.NewRegistry())
}

func TestNewMetrics(t *testing.T) {
	// Use unique namespace to avoid conflicts with other tests
	m := NewMetrics("test_catalog_search_new")

	assert.NotNil(t, m.SearchesTotal)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.SourceSearches)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.SourceFallbacks)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.HTTPRequestsTotal)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSearch("all", 3, 0.1)
		m.RecordSourceSearchCompleted("DOAJ", 1, 0.1)
		m.RecordSourceSearchFailed("DOAJ", 0.1)
		m.RecordSourceRequest("DOAJ", "search", 0.1)
		m.RecordSourceRequestFailed("DOAJ", "search", "timeout")
		m.RecordSourceRateLimited("DOAJ")
		m.RecordSourceFallback("DOAB")
		m.RecordCacheHit("DOAJ")
		m.RecordCacheMiss("DOAJ")
		m.RecordCacheError("get")
		m.RecordRecordMutation("create")
		m.RecordEventPublished("record.created")
		m.RecordEventFailed("record.created")
		m.RecordHTTPRequest("GET", "/healthz", "200", 0.01)
	})
}

func TestRecordSearch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSearch("articles", 23, 1.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("articles")))

	count, err := getHistogramSampleCount(m.SearchResults.WithLabelValues("articles").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestRecordSourceSearch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceSearchCompleted("DOAJ", 10, 0.4)
	m.RecordSourceSearchCompleted("DOAJ", 5, 0.2)
	m.RecordSourceSearchFailed("DOAB", 30)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SourceSearches.WithLabelValues("DOAJ", "success")))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.SourceResults.WithLabelValues("DOAJ")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceSearches.WithLabelValues("DOAB", "failed")))
}

func TestRecordSourceRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceRequest("DOAJ", "search", 0.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("DOAJ", "search")))
}

func TestRecordSourceRequestFailed(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceRequestFailed("DOAB", "search", "timeout")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("DOAB", "search", "timeout")))
}

func TestRecordSourceRateLimitedAndFallback(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceRateLimited("DOAJ")
	m.RecordSourceFallback("DOAB")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("DOAJ")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceFallbacks.WithLabelValues("DOAB")))
}

func TestRecordCache(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheHit("DOAJ")
	m.RecordCacheHit("DOAJ")
	m.RecordCacheMiss("DOAJ")
	m.RecordCacheError("set")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheHits.WithLabelValues("DOAJ")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMisses.WithLabelValues("DOAJ")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheErrors.WithLabelValues("set")))
}

func TestRecordEvents(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRecordMutation("create")
	m.RecordEventPublished("record.created")
	m.RecordEventFailed("record.deleted")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecordMutations.WithLabelValues("create")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("record.created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsFailed.WithLabelValues("record.deleted")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordHTTPRequest("GET", "/api/v1/search", "200", 0.2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/search", "200")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
