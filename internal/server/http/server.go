// Package httpserver provides the HTTP REST API of the catalog search service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"

	"github.com/helixir/catalog-search-service/internal/catalog/doaj"
	"github.com/helixir/catalog-search-service/internal/database"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
	"github.com/helixir/catalog-search-service/internal/repository"
	"github.com/helixir/catalog-search-service/internal/search"
)

// SearchService is the aggregation layer the search endpoints call.
type SearchService interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	SearchSubject(ctx context.Context, subject string, page, perPage int, filter search.Filter) (*search.Response, error)
	SearchType(ctx context.Context, typeName string, page, perPage int, filter search.Filter) (*search.Response, error)
	AdvancedSearch(ctx context.Context, req search.AdvancedRequest) (*search.Response, error)
	Get(ctx context.Context, kind domain.SourceKind, id string) (*domain.Result, error)
	Stats(ctx context.Context) (*doaj.Stats, error)
}

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// RecordEvents receives record mutations after they are stored.
type RecordEvents interface {
	Emit(ctx context.Context, eventType string, rec *domain.Record, actor string)
}

// Dependencies holds the collaborators of the server. Search, Records,
// Taxonomy and Favourites are required.
type Dependencies struct {
	Search         SearchService
	Records        repository.RecordRepository
	Taxonomy       repository.TaxonomyRepository
	Favourites     repository.FavouriteRepository
	Events         RecordEvents
	Health         HealthChecker
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Dependencies
	config     Config
	validate   *validator.Validate
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MetricsPath is where MetricsHandler is mounted (default /metrics).
	MetricsPath string
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Dependencies, logger zerolog.Logger) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(tagName)

	s := &Server{
		deps:     deps,
		config:   cfg,
		validate: validate,
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogMiddleware)

	// Health and metrics
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.deps.MetricsHandler != nil {
		r.Handle(s.config.MetricsPath, s.deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)
		r.Use(userIDMiddleware)

		r.Get("/search", s.searchHandler)
		r.Get("/search/advanced", s.advancedSearchHandler)
		r.Get("/subjects/{subject}/results", s.subjectResultsHandler)
		r.Get("/types/{type}/results", s.typeResultsHandler)

		r.Get("/doaj/articles/{id}", s.getResultHandler(domain.SourceKindDOAJArticle))
		r.Get("/doaj/journals/{id}", s.getResultHandler(domain.SourceKindDOAJJournal))
		r.Get("/doab/books/*", s.getResultHandler(domain.SourceKindDOABBook))
		r.Get("/stats/doaj", s.statsHandler)

		r.Post("/records", s.createRecord)
		r.Get("/records", s.listRecords)
		r.Get("/records/{recordID}", s.getRecord)
		r.Put("/records/{recordID}", s.updateRecord)
		r.Delete("/records/{recordID}", s.deleteRecord)

		r.Get("/subjects", s.listSubjects)
		r.Post("/subjects", s.createSubject)
		r.Get("/types", s.listContentTypes)
		r.Post("/types", s.createContentType)
		r.Get("/departments", s.listDepartments)
		r.Post("/departments", s.createDepartment)

		r.Get("/users/{userID}/favourites", s.listFavourites)
		r.Post("/users/{userID}/favourites", s.addFavourite)
		r.Delete("/users/{userID}/favourites/*", s.removeFavourite)
	})

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready only when the database is reachable.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	health := s.deps.Health.Health(r.Context())
	if !health.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": health.Status,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
