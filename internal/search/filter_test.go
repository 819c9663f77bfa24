package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/catalog-search-service/internal/domain"
)

func sampleResults() []domain.Result {
	return []domain.Result{
		{
			ID:     "a1",
			Source: domain.SourceKindDOAJArticle,
			Type:   domain.TypeRef{TypeName: domain.TypeNameArticle},
			Detail: domain.Detail{
				Title:                     "Coral reef resilience",
				Abstract:                  "Bleaching events in the Pacific.",
				Keywords:                  "coral, climate",
				JournalOrPublicationTitle: "Marine Biology",
				Creators:                  []domain.Creator{{FirstName: "Ada", LastName: "Lovelace"}},
				Languages:                 "EN",
				ISSN:                      "1234-5678",
				DOI:                       "10.1/reef",
				Date:                      "2019-05",
			},
			Subject: domain.SubjectRef{SubjectName: "Biology"},
		},
		{
			ID:     "b1",
			Source: domain.SourceKindDOABBook,
			Type:   domain.TypeRef{TypeName: domain.TypeNameBook},
			Detail: domain.Detail{
				Title:     "A history of graphs",
				Publisher: "Open Press",
				Creators:  []domain.Creator{{FirstName: "Alan", LastName: "Turing"}},
				Languages: "English, German",
				Year:      "2021",
			},
			Subject: domain.SubjectRef{SubjectName: "Mathematics"},
		},
		{
			ID:     "l1",
			Source: domain.SourceKindLocal,
			Type:   domain.TypeRef{TypeName: "Thesis"},
			Detail: domain.Detail{
				Title:    "Undated notes on coral",
				Keywords: "coral",
			},
		},
	}
}

func ids(results []domain.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "zero filter", filter: Filter{}, expected: []string{"a1", "b1", "l1"}},
		{name: "text in title", filter: Filter{Text: "CORAL"}, expected: []string{"a1", "l1"}},
		{name: "text in abstract", filter: Filter{Text: "pacific"}, expected: []string{"a1"}},
		{name: "text in journal title", filter: Filter{Text: "marine"}, expected: []string{"a1"}},
		{name: "text in creator", filter: Filter{Text: "turing"}, expected: []string{"b1"}},
		{name: "title", filter: Filter{Title: "graphs"}, expected: []string{"b1"}},
		{name: "author", filter: Filter{Author: "lovelace"}, expected: []string{"a1"}},
		{name: "keyword", filter: Filter{Keyword: "climate"}, expected: []string{"a1"}},
		{name: "publisher", filter: Filter{Publisher: "open"}, expected: []string{"b1"}},
		{name: "subject", filter: Filter{Subject: "math"}, expected: []string{"b1"}},
		{name: "type", filter: Filter{Type: "thesis"}, expected: []string{"l1"}},
		{name: "language", filter: Filter{Language: "german"}, expected: []string{"b1"}},
		{name: "issn", filter: Filter{ISSN: "1234"}, expected: []string{"a1"}},
		{name: "doi", filter: Filter{DOI: "10.1/REEF"}, expected: []string{"a1"}},
		{name: "year from", filter: Filter{YearFrom: 2020}, expected: []string{"b1"}},
		{name: "year to", filter: Filter{YearTo: 2019}, expected: []string{"a1"}},
		{name: "year range inclusive", filter: Filter{YearFrom: 2019, YearTo: 2021}, expected: []string{"a1", "b1"}},
		{name: "sources", filter: Filter{Sources: []domain.SourceKind{domain.SourceKindLocal, domain.SourceKindDOABBook}}, expected: []string{"b1", "l1"}},
		{name: "combined", filter: Filter{Text: "coral", Sources: []domain.SourceKind{domain.SourceKindLocal}}, expected: []string{"l1"}},
		{name: "no match", filter: Filter{Title: "nothing like this"}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(tt.filter.Apply(sampleResults())))
		})
	}
}

func TestFilter_ApplyIsIdempotent(t *testing.T) {
	f := Filter{Text: "coral", YearTo: 2020}

	once := f.Apply(sampleResults())
	twice := f.Apply(once)

	assert.Equal(t, once, twice)
}

func TestFilter_ApplyDoesNotModifyInput(t *testing.T) {
	in := sampleResults()
	_ = Filter{Title: "graphs"}.Apply(in)

	assert.Equal(t, []string{"a1", "b1", "l1"}, ids(in))
}

func TestFilter_Match(t *testing.T) {
	r := sampleResults()[1]
	assert.True(t, Filter{Author: "alan"}.Match(r))
	assert.False(t, Filter{Author: "ada"}.Match(r))
}

func TestFilter_Validate(t *testing.T) {
	require.NoError(t, Filter{}.Validate())
	require.NoError(t, Filter{YearFrom: 2000, YearTo: 2000}.Validate())

	err := Filter{YearFrom: 2021, YearTo: 2020}.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = Filter{YearTo: -1}.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = Filter{Sources: []domain.SourceKind{"crossref"}}.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFilter_IsZero(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.False(t, Filter{YearFrom: 1}.IsZero())
	assert.False(t, Filter{Sources: []domain.SourceKind{domain.SourceKindLocal}}.IsZero())
}

func TestPublicationTime(t *testing.T) {
	_, ok := publicationTime(domain.Detail{})
	assert.False(t, ok)

	tm, ok := publicationTime(domain.Detail{PublicationDate: "2020-02-03"})
	require.True(t, ok)
	assert.Equal(t, 2020, tm.Year())
	assert.Equal(t, 3, tm.Day())
}

func TestPublicationTime_AgreesWithPublicationYear(t *testing.T) {
	details := []domain.Detail{
		{Year: "2010", PublicationDate: "2020-06-01"},
		{Date: "2003-04", PublicationDate: "2021-01-05"},
		{Year: "n.d.", PublicationDate: "2018-09-30"},
		{PublicationDate: "2020-02-03"},
	}
	for _, d := range details {
		tm, ok := publicationTime(d)
		require.True(t, ok)
		assert.Equal(t, d.PublicationYear(), tm.Year(), "%+v", d)
	}
}

func TestFilter_JournalYearUsesOAStart(t *testing.T) {
	journal := domain.Result{
		ID:     "j1",
		Source: domain.SourceKindDOAJJournal,
		Detail: domain.Detail{Title: "Journal of Reefs", Year: "2010", PublicationDate: "2020-06-01"},
	}

	assert.Equal(t, []string{"j1"}, ids(Filter{YearTo: 2012}.Apply([]domain.Result{journal})))
	assert.Empty(t, Filter{YearFrom: 2015}.Apply([]domain.Result{journal}))
}
