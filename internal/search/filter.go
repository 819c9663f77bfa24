package search

import (
	"slices"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
)

// Filter narrows already fetched results. Text predicates are
// case-insensitive substring matches; empty fields match everything.
type Filter struct {
	// Text matches title, abstract, keywords, creators, publisher or journal title.
	Text      string              `json:"text,omitempty"`
	Title     string              `json:"title,omitempty"`
	Author    string              `json:"author,omitempty"`
	Keyword   string              `json:"keyword,omitempty"`
	Publisher string              `json:"publisher,omitempty"`
	Subject   string              `json:"subject,omitempty"`
	Type      string              `json:"type,omitempty"`
	Language  string              `json:"language,omitempty"`
	ISSN      string              `json:"issn,omitempty"`
	DOI       string              `json:"doi,omitempty"`
	YearFrom  int                 `json:"yearFrom,omitempty"`
	YearTo    int                 `json:"yearTo,omitempty"`
	Sources   []domain.SourceKind `json:"sources,omitempty"`
}

// IsZero reports whether the filter matches every result.
func (f Filter) IsZero() bool {
	return f.Text == "" && f.Title == "" && f.Author == "" && f.Keyword == "" &&
		f.Publisher == "" && f.Subject == "" && f.Type == "" && f.Language == "" &&
		f.ISSN == "" && f.DOI == "" && f.YearFrom == 0 && f.YearTo == 0 && len(f.Sources) == 0
}

// Validate rejects inverted year ranges and unknown sources.
func (f Filter) Validate() error {
	if f.YearFrom < 0 || f.YearTo < 0 {
		return domain.NewValidationError("year", "must not be negative")
	}
	if f.YearFrom > 0 && f.YearTo > 0 && f.YearFrom > f.YearTo {
		return domain.NewValidationError("year_from", "must not be after year_to")
	}
	for _, s := range f.Sources {
		if !s.IsValid() {
			return domain.NewValidationError("sources", "unknown source "+string(s))
		}
	}
	return nil
}

// Apply returns the results matching f, preserving order. The input is not
// modified, and Apply(Apply(x)) == Apply(x).
func (f Filter) Apply(results []domain.Result) []domain.Result {
	if f.IsZero() {
		return results
	}
	m := f.compile()
	out := make([]domain.Result, 0, len(results))
	for _, r := range results {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Match reports whether r passes the filter.
func (f Filter) Match(r domain.Result) bool {
	return f.compile().match(r)
}

// matcher holds a filter with lowercased terms and resolved year bounds.
type matcher struct {
	text, title, author, keyword, publisher, subject, typ, language, issn, doi string

	from, to time.Time
	sources  []domain.SourceKind
}

func (f Filter) compile() matcher {
	m := matcher{
		text:      fold(f.Text),
		title:     fold(f.Title),
		author:    fold(f.Author),
		keyword:   fold(f.Keyword),
		publisher: fold(f.Publisher),
		subject:   fold(f.Subject),
		typ:       fold(f.Type),
		language:  fold(f.Language),
		issn:      fold(f.ISSN),
		doi:       fold(f.DOI),
		sources:   f.Sources,
	}
	if f.YearFrom > 0 {
		m.from = now.With(time.Date(f.YearFrom, time.June, 1, 0, 0, 0, 0, time.UTC)).BeginningOfYear()
	}
	if f.YearTo > 0 {
		m.to = now.With(time.Date(f.YearTo, time.June, 1, 0, 0, 0, 0, time.UTC)).EndOfYear()
	}
	return m
}

func (m matcher) match(r domain.Result) bool {
	d := r.Detail

	if len(m.sources) > 0 && !slices.Contains(m.sources, r.Source) {
		return false
	}
	if m.text != "" && !anyContains(m.text, d.Title, d.Abstract, d.Keywords, d.Publisher,
		d.JournalOrPublicationTitle, strings.Join(d.CreatorNames(), " ")) {
		return false
	}
	if !contains(d.Title, m.title) ||
		!contains(strings.Join(d.CreatorNames(), "; "), m.author) ||
		!contains(d.Keywords, m.keyword) ||
		!contains(d.Publisher, m.publisher) ||
		!contains(r.Subject.SubjectName, m.subject) ||
		!contains(r.Type.TypeName, m.typ) ||
		!contains(d.Languages, m.language) ||
		!contains(d.ISSN, m.issn) ||
		!contains(d.DOI, m.doi) {
		return false
	}

	if !m.from.IsZero() || !m.to.IsZero() {
		t, ok := publicationTime(d)
		if !ok {
			return false
		}
		if !m.from.IsZero() && t.Before(m.from) {
			return false
		}
		if !m.to.IsZero() && t.After(m.to) {
			return false
		}
	}

	return true
}

// publicationTime resolves the publication time of d from the same fields,
// in the same order, as domain.Detail.PublicationYear.
func publicationTime(d domain.Detail) (time.Time, bool) {
	for _, v := range d.DateCandidates() {
		norm := catalog.NormalizeDate(v)
		for _, layout := range []string{time.DateOnly, "2006-01", "2006"} {
			if t, err := time.Parse(layout, norm); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// contains reports whether needle (already folded) occurs in haystack.
func contains(haystack, needle string) bool {
	return needle == "" || strings.Contains(strings.ToLower(haystack), needle)
}

func anyContains(needle string, haystacks ...string) bool {
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
