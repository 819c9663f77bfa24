// Package catalog provides the abstractions shared by every literature
// catalog the service can search.
//
// Each catalog (the local record store, DOAJ articles, DOAJ journals and
// DOAB books) implements the Source interface and maps its native payload
// into domain.Result, so the search layer can merge, filter and paginate
// results without knowing where they came from.
//
// Example usage:
//
//	registry := catalog.NewRegistry()
//	registry.Register(doajClient.Articles())
//	registry.Register(doabClient)
//	results := registry.SearchSources(ctx, catalog.Query{Text: "coral reefs"}, nil)
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/helixir/catalog-search-service/internal/domain"
)

// DefaultPageSize is the number of results per page when a query does not set one.
const DefaultPageSize = 10

// FieldQuery holds per-field search terms used by advanced search.
// Empty fields are ignored; non-empty fields are combined with AND.
type FieldQuery struct {
	Title     string
	Author    string
	Keywords  string
	Publisher string
	ISSN      string
	DOI       string
	Subject   string
}

// IsEmpty reports whether no field term is set.
func (f FieldQuery) IsEmpty() bool {
	return strings.TrimSpace(f.Title) == "" &&
		strings.TrimSpace(f.Author) == "" &&
		strings.TrimSpace(f.Keywords) == "" &&
		strings.TrimSpace(f.Publisher) == "" &&
		strings.TrimSpace(f.ISSN) == "" &&
		strings.TrimSpace(f.DOI) == "" &&
		strings.TrimSpace(f.Subject) == ""
}

// Query describes a search against a single catalog.
type Query struct {
	// Text is the free-text query. May be empty when Fields or Subject is set.
	Text string

	// Fields restricts the search to individual bibliographic fields.
	Fields FieldQuery

	// Subject restricts results to a subject area (exact subject browse).
	Subject string

	// TypeName restricts local results to a content type. Remote catalogs
	// serve a single type each and ignore it.
	TypeName string

	// Page is the 1-based page to fetch from catalogs that page server-side.
	Page int

	// PageSize is the number of results per page. Catalogs that page
	// client-side may return more than PageSize results.
	PageSize int
}

// IsEmpty reports whether the query carries no search criteria at all.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" &&
		strings.TrimSpace(q.Subject) == "" &&
		strings.TrimSpace(q.TypeName) == "" &&
		q.Fields.IsEmpty()
}

// Normalized returns a copy of q with Page and PageSize defaulted.
func (q Query) Normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	q.Text = strings.TrimSpace(q.Text)
	q.Subject = strings.TrimSpace(q.Subject)
	return q
}

// Page contains one page of normalized results from a catalog.
type Page struct {
	// Results contains the normalized results. Never nil on success.
	Results []domain.Result

	// Total is the number of matching results the catalog reports, after
	// any clamping the catalog applies.
	Total int

	// Page is the 1-based page number these results belong to.
	Page int

	// PageSize is the page size the catalog used.
	PageSize int

	// NextPage, PrevPage and LastPage are 1-based page numbers for catalogs
	// that page server-side; zero means no such page.
	NextPage int
	PrevPage int
	LastPage int

	// ServerPaged is true when Results is already a single server-side page,
	// false when Results holds every fetched match and must be sliced locally.
	ServerPaged bool

	// Source identifies which catalog produced the page.
	Source domain.SourceKind

	// SearchDuration is the time taken to execute the search.
	SearchDuration time.Duration
}

// EmptyPage returns a page with no results for the given source.
func EmptyPage(kind domain.SourceKind, q Query) *Page {
	q = q.Normalized()
	return &Page{
		Results:  []domain.Result{},
		Page:     q.Page,
		PageSize: q.PageSize,
		Source:   kind,
	}
}

// Source defines the interface that every catalog client must implement.
type Source interface {
	// Search queries the catalog for results matching q.
	// Implementations respect context cancellation and wrap errors with
	// catalog context; they never return a nil page without an error.
	Search(ctx context.Context, q Query) (*Page, error)

	// GetByID retrieves a single result by its catalog-specific identifier.
	// Returns domain.ErrNotFound if the catalog has no such item.
	GetByID(ctx context.Context, id string) (*domain.Result, error)

	// Kind returns the kind of results this source produces.
	Kind() domain.SourceKind

	// Name returns a human-readable name used for logging and metrics.
	Name() string

	// IsEnabled returns whether this source is available for searches.
	IsEnabled() bool
}
