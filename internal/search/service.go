// Package search aggregates the catalogs into tab-scoped, filtered and
// paginated result lists.
//
// Server-paged catalogs (DOAJ) are asked for exactly the requested page.
// Everything else, and every merged search, is fetched whole, filtered and
// sliced locally. A failing catalog never fails a search: its error is
// logged, counted and reported in Response.Sources, and it contributes no
// results.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/catalog/doaj"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
)

// Defaults for Config.
const (
	DefaultMaxPerPage    = 100
	DefaultMergeFetch    = 100
	DefaultSourceTimeout = 45 * time.Second
)

// Catalogs is the subset of catalog.Registry the service uses.
type Catalogs interface {
	SearchSources(ctx context.Context, q catalog.Query, kinds []domain.SourceKind) []catalog.SourceResult
	Lookup(kind domain.SourceKind) (catalog.Source, error)
}

// StatsProvider reports catalog-wide totals.
type StatsProvider interface {
	Stats(ctx context.Context) (*doaj.Stats, error)
}

// Config holds search settings.
type Config struct {
	// ResultsPerPage is the page size when a request does not set one.
	ResultsPerPage int
	// MaxPerPage caps the page size a request may ask for.
	MaxPerPage int
	// MergeFetch is the page size requested from server-paged catalogs
	// when their results are merged with other catalogs.
	MergeFetch int
	// SourceTimeout bounds the whole fan-out of one search.
	SourceTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ResultsPerPage <= 0 {
		c.ResultsPerPage = DefaultPerPage
	}
	if c.MaxPerPage < c.ResultsPerPage {
		c.MaxPerPage = max(DefaultMaxPerPage, c.ResultsPerPage)
	}
	if c.MergeFetch <= 0 {
		c.MergeFetch = DefaultMergeFetch
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = DefaultSourceTimeout
	}
}

// Request is a tab-scoped search.
type Request struct {
	Query   string
	Fields  catalog.FieldQuery
	Tab     Tab
	Page    int
	PerPage int
	Filter  Filter
}

// AdvancedRequest is a field-by-field search across chosen catalogs.
type AdvancedRequest struct {
	Fields   catalog.FieldQuery
	YearFrom int
	YearTo   int
	Type     string
	Language string
	// Sources limits the catalogs searched; empty searches all enabled ones.
	Sources []domain.SourceKind
	Page    int
	PerPage int
}

// SourceStatus reports how one catalog fared in a search.
type SourceStatus struct {
	Kind       domain.SourceKind `json:"kind"`
	Name       string            `json:"name"`
	Total      int               `json:"total"`
	Returned   int               `json:"returned"`
	DurationMs int64             `json:"durationMs"`
	Error      string            `json:"error,omitempty"`
}

// Response is one page of aggregated results.
type Response struct {
	Tab        Tab             `json:"tab"`
	Results    []domain.Result `json:"results"`
	Pagination Pagination      `json:"pagination"`
	// TotalCount is the number of results across all pages. For DOAJ tabs
	// it is the clamped total DOAJ reports.
	TotalCount int            `json:"totalCount"`
	Sources    []SourceStatus `json:"sources"`
}

// Service runs searches over the registered catalogs.
type Service struct {
	catalogs Catalogs
	stats    StatsProvider
	config   Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewService creates a search service. stats and metrics may be nil.
func NewService(catalogs Catalogs, stats StatsProvider, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	cfg.applyDefaults()
	return &Service{
		catalogs: catalogs,
		stats:    stats,
		config:   cfg,
		logger:   logger.With().Str("component", "search").Logger(),
		metrics:  metrics,
	}
}

// Search runs a tab-scoped search.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if req.Tab == "" {
		req.Tab = TabHome
	}
	if _, err := ParseTab(string(req.Tab)); err != nil {
		return nil, err
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}
	page, perPage := s.pageParams(req.Page, req.PerPage)

	logger := observability.WithSearchContext(observability.LoggerFromContext(ctx, s.logger), req.Query, string(req.Tab))
	logger.Debug().
		Int("page", page).
		Int("per_page", perPage).
		Msg("search")

	q := catalog.Query{
		Text:     req.Query,
		Fields:   req.Fields,
		Page:     page,
		PageSize: perPage,
	}

	switch req.Tab {
	case TabArticles, TabJournals:
		return s.serverPaged(ctx, req.Tab, q, req.Filter)
	case TabAll:
		q.Page, q.PageSize = 1, s.config.MergeFetch
		return s.merged(ctx, req.Tab, q, nil, req.Filter, page, perPage)
	default:
		return s.merged(ctx, req.Tab, q, req.Tab.Sources(), req.Filter, page, perPage)
	}
}

// SearchSubject returns results of one subject from the local catalog,
// DOAJ and DOAB, merged.
func (s *Service) SearchSubject(ctx context.Context, subject string, page, perPage int, filter Filter) (*Response, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, domain.NewValidationError("subject", "is required")
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page, perPage = s.pageParams(page, perPage)

	q := catalog.Query{Subject: subject, Page: 1, PageSize: s.config.MergeFetch}
	return s.merged(ctx, TabAll, q, nil, filter, page, perPage)
}

// SearchType returns local records of one content type together with the
// external catalog holding that type, if any.
func (s *Service) SearchType(ctx context.Context, typeName string, page, perPage int, filter Filter) (*Response, error) {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return nil, domain.NewValidationError("type", "is required")
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page, perPage = s.pageParams(page, perPage)

	kinds := []domain.SourceKind{domain.SourceKindLocal}
	if kind, ok := TypeSource(typeName); ok {
		kinds = append(kinds, kind)
	}

	q := catalog.Query{TypeName: typeName, Page: 1, PageSize: s.config.MergeFetch}
	return s.merged(ctx, TabAll, q, kinds, filter, page, perPage)
}

// AdvancedSearch runs a field search across the chosen catalogs and filters
// by year, type and language.
func (s *Service) AdvancedSearch(ctx context.Context, req AdvancedRequest) (*Response, error) {
	filter := Filter{
		YearFrom: req.YearFrom,
		YearTo:   req.YearTo,
		Type:     req.Type,
		Language: req.Language,
		Sources:  req.Sources,
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page, perPage := s.pageParams(req.Page, req.PerPage)

	kinds := req.Sources
	if len(kinds) == 0 && req.Type != "" {
		kinds = []domain.SourceKind{domain.SourceKindLocal}
		if kind, ok := TypeSource(req.Type); ok {
			kinds = append(kinds, kind)
		}
	}

	// Local records are filtered on type in the database; the external
	// catalogs are filtered on the normalized type below.
	q := catalog.Query{Fields: req.Fields, TypeName: req.Type, Page: 1, PageSize: s.config.MergeFetch}

	// The local catalog searches a single text column, so the field
	// query also narrows the merged list.
	filter.Title = req.Fields.Title
	filter.Author = req.Fields.Author
	filter.ISSN = req.Fields.ISSN
	filter.DOI = req.Fields.DOI

	return s.merged(ctx, TabAll, q, kinds, filter, page, perPage)
}

// Stats returns DOAJ article and journal totals.
func (s *Service) Stats(ctx context.Context) (*doaj.Stats, error) {
	if s.stats == nil {
		return nil, domain.ErrSourceDisabled
	}
	return s.stats.Stats(ctx)
}

// Get looks up one result by source and ID.
func (s *Service) Get(ctx context.Context, kind domain.SourceKind, id string) (*domain.Result, error) {
	src, err := s.catalogs.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return src.GetByID(ctx, id)
}

// serverPaged runs a single DOAJ search for exactly the requested page.
func (s *Service) serverPaged(ctx context.Context, tab Tab, q catalog.Query, filter Filter) (*Response, error) {
	start := time.Now()
	out := s.fanOut(ctx, q, tab.Sources())

	resp := &Response{
		Tab:     tab,
		Results: []domain.Result{},
		Sources: out.statuses,
		Pagination: Pagination{
			Page:    q.Page,
			PerPage: q.PageSize,
		},
	}
	if len(out.pages) > 0 && out.pages[0] != nil {
		page := out.pages[0]
		resp.Results = filter.Apply(page.Results)
		resp.TotalCount = page.Total
		resp.Pagination.TotalPages = page.LastPage
		resp.Pagination.NextPage = page.NextPage
		resp.Pagination.PrevPage = page.PrevPage
	}

	s.metrics.RecordSearch(string(tab), resp.TotalCount, time.Since(start).Seconds())
	return resp, nil
}

// merged searches kinds, concatenates their results in source order,
// filters, and slices the requested page locally.
func (s *Service) merged(ctx context.Context, tab Tab, q catalog.Query, kinds []domain.SourceKind, filter Filter, page, perPage int) (*Response, error) {
	start := time.Now()
	out := s.fanOut(ctx, q, kinds)

	all := []domain.Result{}
	for _, p := range out.pages {
		if p != nil {
			all = append(all, p.Results...)
		}
	}
	all = filter.Apply(all)

	pageResults, pagination := Paginate(all, page, perPage)

	s.metrics.RecordSearch(string(tab), len(all), time.Since(start).Seconds())
	return &Response{
		Tab:        tab,
		Results:    pageResults,
		Pagination: pagination,
		TotalCount: len(all),
		Sources:    out.statuses,
	}, nil
}

// fanOutResult pairs every searched catalog's page (nil on failure) with
// its status, index for index.
type fanOutResult struct {
	pages    []*catalog.Page
	statuses []SourceStatus
}

// fanOut searches the catalogs and absorbs their errors. A nil kinds
// searches every enabled catalog.
func (s *Service) fanOut(ctx context.Context, q catalog.Query, kinds []domain.SourceKind) fanOutResult {
	ctx, cancel := context.WithTimeout(ctx, s.config.SourceTimeout)
	defer cancel()

	logger := observability.LoggerFromContext(ctx, s.logger)
	found := s.catalogs.SearchSources(ctx, q, kinds)

	// A requested catalog that is switched off still gets a status row so
	// callers can tell an empty tab from a disabled one.
	if len(found) == 0 && len(kinds) == 1 {
		return fanOutResult{
			pages: []*catalog.Page{nil},
			statuses: []SourceStatus{{
				Kind:  kinds[0],
				Error: domain.ErrSourceDisabled.Error(),
			}},
		}
	}

	out := fanOutResult{
		pages:    make([]*catalog.Page, len(found)),
		statuses: make([]SourceStatus, len(found)),
	}
	for i, sr := range found {
		st := SourceStatus{
			Kind:       sr.Kind,
			Name:       sr.Name,
			DurationMs: sr.Duration.Milliseconds(),
		}
		if sr.Err != nil {
			st.Error = sr.Err.Error()
			s.metrics.RecordSourceSearchFailed(string(sr.Kind), sr.Duration.Seconds())
			sourceLogger := observability.WithSourceContext(logger, sr.Name, string(sr.Kind))
			sourceLogger.Warn().
				Err(sr.Err).
				Str("query", q.Text).
				Msg("catalog search failed, continuing without it")
		} else {
			out.pages[i] = sr.Page
			st.Total = sr.Page.Total
			st.Returned = len(sr.Page.Results)
			s.metrics.RecordSourceSearchCompleted(string(sr.Kind), st.Returned, sr.Duration.Seconds())
		}
		out.statuses[i] = st
	}
	return out
}

func (s *Service) pageParams(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = s.config.ResultsPerPage
	}
	return page, min(perPage, s.config.MaxPerPage)
}
