package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/helixir/catalog-search-service/internal/domain"
)

// SourceResult holds the outcome of a search against one source.
type SourceResult struct {
	// Kind identifies which source produced the result.
	Kind domain.SourceKind

	// Name is the human-readable source name.
	Name string

	// Page contains the results if the search succeeded.
	// Will be nil if Err is non-nil.
	Page *Page

	// Err contains the error if the search failed.
	Err error

	// Duration is the wall time spent on the search, including failures.
	Duration time.Duration
}

// Registry manages catalog sources and coordinates concurrent searches.
// Sources keep their registration order, which is the order results are
// returned in when no explicit order is requested.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceKind]Source
	order   []domain.SourceKind
}

// NewRegistry creates a new source registry with no sources.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceKind]Source),
	}
}

// Register adds a source to the registry.
// If a source of the same kind already exists, it is replaced in place.
func (r *Registry) Register(source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := source.Kind()
	if _, exists := r.sources[kind]; !exists {
		r.order = append(r.order, kind)
	}
	r.sources[kind] = source
}

// Get returns a source by kind, or nil if not registered.
func (r *Registry) Get(kind domain.SourceKind) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[kind]
}

// Lookup returns the enabled source of the given kind.
// It returns domain.ErrSourceDisabled when the source is missing or disabled.
func (r *Registry) Lookup(kind domain.SourceKind) (Source, error) {
	source := r.Get(kind)
	if source == nil || !source.IsEnabled() {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrSourceDisabled)
	}
	return source, nil
}

// AllSources returns all registered sources in registration order.
func (r *Registry) AllSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Source, 0, len(r.order))
	for _, kind := range r.order {
		sources = append(sources, r.sources[kind])
	}
	return sources
}

// EnabledSources returns only enabled sources, in registration order.
func (r *Registry) EnabledSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Source, 0, len(r.order))
	for _, kind := range r.order {
		if s := r.sources[kind]; s.IsEnabled() {
			sources = append(sources, s)
		}
	}
	return sources
}

// SearchAll searches all enabled sources concurrently.
func (r *Registry) SearchAll(ctx context.Context, q Query) []SourceResult {
	return r.SearchSources(ctx, q, nil)
}

// SearchSources searches the given sources concurrently.
// If kinds is empty, every enabled source is searched.
// Results come back in the order of kinds (or registration order), one per
// searched source; failures are reported in SourceResult.Err and never dropped.
// Unknown or disabled kinds are skipped.
func (r *Registry) SearchSources(ctx context.Context, q Query, kinds []domain.SourceKind) []SourceResult {
	var sources []Source

	if len(kinds) == 0 {
		sources = r.EnabledSources()
	} else {
		r.mu.RLock()
		seen := make(map[domain.SourceKind]bool, len(kinds))
		sources = make([]Source, 0, len(kinds))
		for _, kind := range kinds {
			if seen[kind] {
				continue
			}
			seen[kind] = true
			if source, ok := r.sources[kind]; ok && source.IsEnabled() {
				sources = append(sources, source)
			}
		}
		r.mu.RUnlock()
	}

	if len(sources) == 0 {
		return nil
	}

	type indexed struct {
		idx    int
		result SourceResult
	}

	resultChan := make(chan indexed, len(sources))
	var wg sync.WaitGroup

	for i, source := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()

			start := time.Now()
			page, err := s.Search(ctx, q)
			if err == nil && page == nil {
				err = fmt.Errorf("%s returned no page", s.Name())
			}
			resultChan <- indexed{idx: idx, result: SourceResult{
				Kind:     s.Kind(),
				Name:     s.Name(),
				Page:     page,
				Err:      err,
				Duration: time.Since(start),
			}}
		}(i, source)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]SourceResult, len(sources))
	for res := range resultChan {
		results[res.idx] = res.result
	}

	return results
}
