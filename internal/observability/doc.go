// Package observability provides logging and metrics support for the
// catalog search service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithSearchContext(logger, query, tab)
//
// # Metrics
//
//	metrics := observability.NewMetrics("catalog_search")
//	metrics.RecordSourceSearchCompleted("DOAJ", len(results), elapsed.Seconds())
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - user_id: calling user, when known
//   - query: free-text search query
//   - tab: search tab (home, articles, journals, books, all)
//   - source: catalog name (Local, DOAJ, DOAB)
//   - source_kind: result kind (local, doaj_article, doaj_journal, doab_book)
//   - record_id: local record identifier
package observability
