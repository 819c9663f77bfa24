package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the catalog search service.
// Metrics are organized by subsystem: aggregated searches, catalog sources,
// outbound HTTP requests, the catalog cache, record events, and the HTTP API.
//
// All Record* methods are safe to call on a nil *Metrics, which lets
// components run without metrics wired (tests, the CLI).
type Metrics struct {
	// SearchesTotal counts aggregated searches, labeled by tab.
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes aggregated search duration in seconds, labeled by tab.
	SearchDuration *prometheus.HistogramVec

	// SearchResults observes the number of matching results before pagination, labeled by tab.
	SearchResults *prometheus.HistogramVec

	// SourceSearches counts searches against a single catalog, labeled by source and outcome.
	SourceSearches *prometheus.CounterVec

	// SourceSearchDuration observes catalog search duration in seconds, labeled by source.
	SourceSearchDuration *prometheus.HistogramVec

	// SourceResults counts normalized results returned, labeled by source.
	SourceResults *prometheus.CounterVec

	// SourceRequestsTotal counts HTTP requests to catalog APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to catalog APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to catalog APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from catalog APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// SourceFallbacks counts fallback requests issued after a primary request timed out, labeled by source.
	SourceFallbacks *prometheus.CounterVec

	// CacheHits counts catalog cache hits, labeled by source.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts catalog cache misses, labeled by source.
	CacheMisses *prometheus.CounterVec

	// CacheErrors counts cache backend errors, labeled by operation.
	CacheErrors *prometheus.CounterVec

	// RecordMutations counts local record writes, labeled by operation.
	RecordMutations *prometheus.CounterVec

	// EventsPublished counts events published to the event bus, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts events that could not be published, labeled by event type.
	EventsFailed *prometheus.CounterVec

	// HTTPRequestsTotal counts API requests, labeled by method, route, and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance registered with reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Aggregated searches
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of aggregated searches",
		}, []string{"tab"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of aggregated searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"tab"}),
		SearchResults: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of matching results per aggregated search before pagination",
			Buckets:   []float64{0, 1, 10, 50, 100, 250, 500, 1000, 2500},
		}, []string{"tab"}),

		// Catalog sources
		SourceSearches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Total number of searches against a single catalog",
		}, []string{"source", "outcome"}),
		SourceSearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of catalog searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source"}),
		SourceResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_results_total",
			Help:      "Total number of normalized results returned by catalogs",
		}, []string{"source"}),

		// Outbound requests
		SourceRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of HTTP requests to catalog APIs",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed HTTP requests to catalog APIs",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of HTTP requests to catalog APIs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from catalog APIs",
		}, []string{"source"}),
		SourceFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fallbacks_total",
			Help:      "Total number of fallback requests issued after a timeout",
		}, []string{"source"}),

		// Cache
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of catalog cache hits",
		}, []string{"source"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of catalog cache misses",
		}, []string{"source"}),
		CacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of cache backend errors",
		}, []string{"operation"}),

		// Records and events
		RecordMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_mutations_total",
			Help:      "Total number of local record writes",
		}, []string{"operation"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published",
		}, []string{"event_type"}),
		EventsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of events that failed to publish",
		}, []string{"event_type"}),

		// HTTP API
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordSearch records a completed aggregated search.
func (m *Metrics) RecordSearch(tab string, resultCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(tab).Inc()
	m.SearchDuration.WithLabelValues(tab).Observe(durationSeconds)
	m.SearchResults.WithLabelValues(tab).Observe(float64(resultCount))
}

// RecordSourceSearchCompleted records a successful search against one catalog.
func (m *Metrics) RecordSourceSearchCompleted(source string, resultCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceSearches.WithLabelValues(source, "success").Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.SourceResults.WithLabelValues(source).Add(float64(resultCount))
}

// RecordSourceSearchFailed records a failed search against one catalog.
func (m *Metrics) RecordSourceSearchFailed(source string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceSearches.WithLabelValues(source, "failed").Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRequest records a request to a catalog API.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a catalog API.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a catalog.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordSourceFallback records a fallback request after a timeout.
func (m *Metrics) RecordSourceFallback(source string) {
	if m == nil {
		return
	}
	m.SourceFallbacks.WithLabelValues(source).Inc()
}

// RecordCacheHit records a catalog cache hit.
func (m *Metrics) RecordCacheHit(source string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(source).Inc()
}

// RecordCacheMiss records a catalog cache miss.
func (m *Metrics) RecordCacheMiss(source string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(source).Inc()
}

// RecordCacheError records a cache backend error.
func (m *Metrics) RecordCacheError(operation string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordRecordMutation records a create, update or delete of a local record.
func (m *Metrics) RecordRecordMutation(operation string) {
	if m == nil {
		return
	}
	m.RecordMutations.WithLabelValues(operation).Inc()
}

// RecordEventPublished records an event published to the event bus.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records an event that could not be published.
func (m *Metrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
