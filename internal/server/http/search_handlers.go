package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/search"
)

// searchHandler handles GET /search.
// Query parameters: q, tab, page, per_page and the filter parameters.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("q must be at most %d characters", maxQueryLength))
		return
	}

	tab, err := search.ParseTab(r.URL.Query().Get("tab"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	page, perPage, err := parseSearchPage(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp, err := s.deps.Search.Search(r.Context(), search.Request{
		Query:   q,
		Tab:     tab,
		Page:    page,
		PerPage: perPage,
		Filter:  filter,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// advancedSearchHandler handles GET /search/advanced.
func (s *Server) advancedSearchHandler(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	fields := catalog.FieldQuery{
		Title:     strings.TrimSpace(v.Get("title")),
		Author:    strings.TrimSpace(v.Get("author")),
		Keywords:  strings.TrimSpace(v.Get("keywords")),
		Publisher: strings.TrimSpace(v.Get("publisher")),
		ISSN:      strings.TrimSpace(v.Get("issn")),
		DOI:       strings.TrimSpace(v.Get("doi")),
		Subject:   strings.TrimSpace(v.Get("subject")),
	}
	for _, f := range []string{fields.Title, fields.Author, fields.Keywords, fields.Publisher, fields.ISSN, fields.DOI, fields.Subject} {
		if len(f) > maxQueryLength {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("search fields must be at most %d characters", maxQueryLength))
			return
		}
	}

	filter, err := parseFilter(v)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if fields.IsEmpty() && filter.YearFrom == 0 && filter.YearTo == 0 && filter.Type == "" {
		writeError(w, http.StatusBadRequest, "at least one search field is required")
		return
	}
	page, perPage, err := parseSearchPage(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp, err := s.deps.Search.AdvancedSearch(r.Context(), search.AdvancedRequest{
		Fields:   fields,
		YearFrom: filter.YearFrom,
		YearTo:   filter.YearTo,
		Type:     filter.Type,
		Language: filter.Language,
		Sources:  filter.Sources,
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// subjectResultsHandler handles GET /subjects/{subject}/results.
func (s *Server) subjectResultsHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := url.PathUnescape(chi.URLParam(r, "subject"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subject")
		return
	}
	page, perPage, err := parseSearchPage(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp, err := s.deps.Search.SearchSubject(r.Context(), subject, page, perPage, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// typeResultsHandler handles GET /types/{type}/results.
func (s *Server) typeResultsHandler(w http.ResponseWriter, r *http.Request) {
	typeName, err := url.PathUnescape(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}
	page, perPage, err := parseSearchPage(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp, err := s.deps.Search.SearchType(r.Context(), typeName, page, perPage, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// getResultHandler returns a handler that looks one result up in a catalog.
// DOAB handles contain a slash, so the book route captures the ID with a
// wildcard.
func (s *Server) getResultHandler(kind domain.SourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			id = chi.URLParam(r, "*")
		}
		id = strings.Trim(id, "/ ")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}

		res, err := s.deps.Search.Get(r.Context(), kind, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, domainResultToResponse(*res))
	}
}

// statsHandler handles GET /stats/doaj.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Search.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Articles: stats.Articles, Journals: stats.Journals})
}

func parseSearchPage(r *http.Request) (page, perPage int, err error) {
	if page, err = queryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	if page > maxSearchPage {
		return 0, 0, domain.NewValidationError("page", fmt.Sprintf("must be at most %d", maxSearchPage))
	}
	if perPage, err = queryInt(r, "per_page"); err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

// parseFilter reads the result filter from query parameters. sources is a
// comma-separated list of source kinds.
func parseFilter(v url.Values) (search.Filter, error) {
	f := search.Filter{
		Text:      strings.TrimSpace(v.Get("text")),
		Title:     strings.TrimSpace(v.Get("filter_title")),
		Author:    strings.TrimSpace(v.Get("filter_author")),
		Keyword:   strings.TrimSpace(v.Get("keyword")),
		Publisher: strings.TrimSpace(v.Get("filter_publisher")),
		Subject:   strings.TrimSpace(v.Get("filter_subject")),
		Type:      strings.TrimSpace(v.Get("type")),
		Language:  strings.TrimSpace(v.Get("language")),
		ISSN:      strings.TrimSpace(v.Get("filter_issn")),
		DOI:       strings.TrimSpace(v.Get("filter_doi")),
	}

	var err error
	if f.YearFrom, err = parseYear(v, "year_from"); err != nil {
		return search.Filter{}, err
	}
	if f.YearTo, err = parseYear(v, "year_to"); err != nil {
		return search.Filter{}, err
	}

	if raw := v.Get("sources"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			kind := domain.SourceKind(part)
			if !kind.IsValid() {
				return search.Filter{}, domain.NewValidationError("sources", "unknown source")
			}
			f.Sources = append(f.Sources, kind)
		}
	}

	return f, f.Validate()
}

func parseYear(v url.Values, name string) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || len(raw) != 4 || year < 1 {
		return 0, domain.NewValidationError(name, "must be a four digit year")
	}
	return year, nil
}
