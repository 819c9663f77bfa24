// Package local exposes the service's own published records as a catalog source.
package local

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/repository"
)

// DefaultFetchLimit bounds how many records one search loads for client-side paging.
const DefaultFetchLimit = 1000

// Records is the subset of repository.RecordRepository the source needs.
type Records interface {
	Search(ctx context.Context, search repository.RecordSearch) ([]*domain.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Record, error)
}

// Config holds configuration for the local source.
type Config struct {
	// FetchLimit caps the records loaded per search.
	FetchLimit int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// Source adapts the record repository to catalog.Source.
type Source struct {
	records Records
	config  Config
}

var _ catalog.Source = (*Source)(nil)

// New creates a local source over records.
func New(records Records, cfg Config) *Source {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	return &Source{records: records, config: cfg}
}

// Search loads published records matching q. Field queries are folded into
// the text match; Subject and TypeName filter exactly. The whole match set
// is returned for client-side paging.
func (s *Source) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	start := time.Now()
	q = q.Normalized()

	subject := q.Subject
	if subject == "" {
		subject = q.Fields.Subject
	}

	records, err := s.records.Search(ctx, repository.RecordSearch{
		Text:        searchText(q),
		TypeName:    q.TypeName,
		SubjectName: subject,
		Limit:       s.config.FetchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("searching local records: %w", err)
	}

	results := make([]domain.Result, 0, len(records))
	for _, r := range records {
		results = append(results, r.ToResult())
	}

	return &catalog.Page{
		Results:        results,
		Total:          len(results),
		Page:           q.Page,
		PageSize:       q.PageSize,
		Source:         domain.SourceKindLocal,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID returns a published record by its UUID.
func (s *Source) GetByID(ctx context.Context, id string) (*domain.Result, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.NewValidationError("id", "must be a UUID")
	}

	rec, err := s.records.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.RecordStatusPublished {
		return nil, domain.NewNotFoundError("record", id)
	}

	res := rec.ToResult()
	return &res, nil
}

// Kind returns the source kind.
func (s *Source) Kind() domain.SourceKind {
	return domain.SourceKindLocal
}

// Name returns the human-readable name for this source.
func (s *Source) Name() string {
	return "Local catalog"
}

// IsEnabled returns whether this source is enabled.
func (s *Source) IsEnabled() bool {
	return s.config.Enabled
}

// searchText picks the text matched against the record search column. The
// column only covers title, abstract, keywords, publisher and journal title,
// so author, ISSN and DOI are left to the search layer's filter.
func searchText(q catalog.Query) string {
	for _, v := range []string{q.Text, q.Fields.Title, q.Fields.Keywords, q.Fields.Publisher} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
