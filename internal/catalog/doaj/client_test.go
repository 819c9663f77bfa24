package doaj

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string, enabled bool) *Client {
	cfg := Config{
		BaseURL:   serverURL,
		Timeout:   5 * time.Second,
		RateLimit: 100, // High rate for testing
		BurstSize: 100,
		Enabled:   enabled,
	}

	httpClient := catalog.NewHTTPClient(catalog.HTTPClientConfig{
		Source:     "DOAJ",
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: -1,
		UserAgent:  "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

func sampleArticle() Article {
	return Article{
		ID:          "0a1b2c",
		CreatedDate: "2020-02-11T08:21:03Z",
		BibJSON: ArticleBibJSON{
			Title:    "Coral  reef resilience",
			Abstract: "<p>Reefs <i>recover</i> slowly.</p>",
			Year:     "2019",
			Month:    "7",
			Author:   []Author{{Name: "Ada Lovelace"}, {Name: "Curie, Marie"}, {Name: " "}},
			Journal: JournalRef{
				Title:     "Marine Ecology",
				Volume:    "12",
				Number:    "3",
				StartPage: "101",
				EndPage:   "115",
				Publisher: "Ocean Press",
				Language:  []string{"EN", "FR"},
			},
			Identifier: []Identifier{
				{Type: "eissn", ID: "2222-2222"},
				{Type: "pissn", ID: "1111-1111"},
				{Type: "doi", ID: "https://doi.org/10.1234/reef.1"},
			},
			Keywords: []string{"coral", "resilience"},
			Link:     []Link{{Type: "fulltext", URL: "https://example.org/reef.pdf"}},
			Subject:  []Subject{{Scheme: "LCC", Term: "Oceanography"}},
		},
	}
}

func sampleJournal() Journal {
	return Journal{
		ID:          "j-1",
		CreatedDate: "2015-06-01T00:00:00Z",
		Admin:       JournalAdmin{Seal: true},
		BibJSON: JournalBibJSON{
			Title:     "Journal of Reefs",
			EISSN:     "3333-3333",
			Publisher: Publisher{Name: "Reef Society", Country: "AU"},
			Keywords:  []string{"reefs"},
			Language:  []string{"EN"},
			Ref:       Ref{Journal: "https://reefs.example.org"},
			Subject:   []Subject{{Term: "Marine biology"}},
			OAStart:   2010,
		},
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_SearchArticles(t *testing.T) {
	t.Run("builds request and normalizes results", func(t *testing.T) {
		var gotPath, gotPage, gotPageSize string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotPage = r.URL.Query().Get("page")
			gotPageSize = r.URL.Query().Get("pageSize")
			writeJSON(t, w, SearchResponse[Article]{
				Total:    42,
				Page:     2,
				PageSize: 10,
				Results:  []Article{sampleArticle()},
				Next:     "https://doaj.org/api/search/articles/coral?page=3&pageSize=10",
				Prev:     "https://doaj.org/api/search/articles/coral?page=1&pageSize=10",
				Last:     "https://doaj.org/api/search/articles/coral?page=5&pageSize=10",
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		page, err := client.SearchArticles(context.Background(), catalog.Query{Text: "coral reef", Page: 2})
		require.NoError(t, err)

		assert.Equal(t, "/search/articles/coral reef", gotPath)
		assert.Equal(t, "2", gotPage)
		assert.Equal(t, "10", gotPageSize)

		assert.Equal(t, 42, page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 3, page.NextPage)
		assert.Equal(t, 1, page.PrevPage)
		assert.Equal(t, 5, page.LastPage)
		assert.True(t, page.ServerPaged)
		assert.Equal(t, domain.SourceKindDOAJArticle, page.Source)

		require.Len(t, page.Results, 1)
		res := page.Results[0]
		assert.Equal(t, "0a1b2c", res.ID)
		assert.Equal(t, domain.TypeNameArticle, res.Type.TypeName)
		assert.Equal(t, "Oceanography", res.Subject.SubjectName)
		assert.Equal(t, "Coral reef resilience", res.Detail.Title)
		assert.Equal(t, "Reefs recover slowly.", res.Detail.Abstract)
		assert.Equal(t, []domain.Creator{
			{FirstName: "Ada", LastName: "Lovelace"},
			{FirstName: "Marie", LastName: "Curie"},
		}, res.Detail.Creators)
		assert.Equal(t, "2019-07", res.Detail.Date)
		assert.Equal(t, "2019", res.Detail.Year)
		assert.Equal(t, "2020-02-11", res.Detail.PublicationDate)
		assert.Equal(t, "1111-1111", res.Detail.ISSN)
		assert.Equal(t, "10.1234/reef.1", res.Detail.DOI)
		assert.Equal(t, "coral, resilience", res.Detail.Keywords)
		assert.Equal(t, "Ocean Press", res.Detail.Publisher)
		assert.Equal(t, "101-115", res.Detail.PageRange)
		assert.Equal(t, "EN, FR", res.Detail.Languages)
		assert.Equal(t, "Marine Ecology", res.Detail.JournalOrPublicationTitle)
		assert.Equal(t, "https://example.org/reef.pdf", res.Detail.OfficialURL)
	})

	t.Run("clamps total to max total", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, SearchResponse[Article]{
				Total:   5000,
				Results: []Article{sampleArticle()},
				Next:    "https://doaj.org/api/search/articles/x?page=2&pageSize=10",
				Last:    "https://doaj.org/api/search/articles/x?page=500&pageSize=10",
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		page, err := client.SearchArticles(context.Background(), catalog.Query{Text: "x"})
		require.NoError(t, err)

		assert.Equal(t, 900, page.Total)
		assert.Equal(t, 90, page.LastPage)
		assert.Equal(t, 2, page.NextPage)
	})

	t.Run("pages beyond the clamp only fetch the total", func(t *testing.T) {
		var gotPage, gotPageSize string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPage = r.URL.Query().Get("page")
			gotPageSize = r.URL.Query().Get("pageSize")
			writeJSON(t, w, SearchResponse[Article]{Total: 5000, Results: []Article{sampleArticle()}})
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		page, err := client.SearchArticles(context.Background(), catalog.Query{Text: "x", Page: 91})
		require.NoError(t, err)

		assert.Equal(t, "1", gotPage)
		assert.Equal(t, "1", gotPageSize)
		assert.Empty(t, page.Results)
		assert.NotNil(t, page.Results)
		assert.Equal(t, 91, page.Page)
		assert.Equal(t, 900, page.Total)
		assert.Equal(t, 90, page.LastPage)
		assert.Equal(t, 90, page.PrevPage)
		assert.Zero(t, page.NextPage)
	})

	t.Run("pages beyond the clamp with few matches", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, SearchResponse[Article]{Total: 25})
		}))
		defer server.Close()

		page, err := newTestClient(server.URL, true).SearchArticles(context.Background(), catalog.Query{Text: "x", Page: 500})
		require.NoError(t, err)

		assert.Equal(t, 25, page.Total)
		assert.Equal(t, 3, page.LastPage)
		assert.Equal(t, 3, page.PrevPage)
	})

	t.Run("empty query matches all", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			writeJSON(t, w, SearchResponse[Article]{})
		}))
		defer server.Close()

		page, err := newTestClient(server.URL, true).SearchArticles(context.Background(), catalog.Query{})
		require.NoError(t, err)
		assert.Equal(t, "/search/articles/*", gotPath)
		assert.Equal(t, 0, page.Total)
		assert.Equal(t, 1, page.LastPage)
		assert.Equal(t, 0, page.NextPage)
	})

	t.Run("returns external API error on failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad query"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, true).SearchArticles(context.Background(), catalog.Query{Text: "("})
		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "bad query")
	})

	t.Run("returns decode error on malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results": [`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, true).SearchArticles(context.Background(), catalog.Query{Text: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding response")
	})
}

func TestClient_SearchJournals(t *testing.T) {
	t.Run("normalizes and clamps journals like articles", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			writeJSON(t, w, SearchResponse[Journal]{
				Total:   1200,
				Results: []Journal{sampleJournal()},
			})
		}))
		defer server.Close()

		page, err := newTestClient(server.URL, true).SearchJournals(context.Background(), catalog.Query{Text: "reefs"})
		require.NoError(t, err)

		assert.Equal(t, "/search/journals/reefs", gotPath)
		assert.Equal(t, 900, page.Total)
		assert.Equal(t, 90, page.LastPage)
		require.Len(t, page.Results, 1)

		res := page.Results[0]
		assert.Equal(t, "j-1", res.ID)
		assert.Equal(t, domain.TypeNameJournal, res.Type.TypeName)
		assert.Equal(t, domain.SourceKindDOAJJournal, res.Source)
		assert.Equal(t, "Journal of Reefs", res.Detail.Title)
		assert.Equal(t, "3333-3333", res.Detail.ISSN)
		assert.Equal(t, "Reef Society", res.Detail.Publisher)
		assert.Equal(t, "https://reefs.example.org", res.Detail.OfficialURL)
		assert.Equal(t, "DOAJ Seal", res.Detail.Status)
		assert.Equal(t, "2010", res.Detail.Year)
		assert.Equal(t, "Marine biology", res.Subject.SubjectName)
	})

	t.Run("custom max total applies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, SearchResponse[Journal]{Total: 1200})
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		client.config.MaxTotal = 100

		page, err := client.SearchJournals(context.Background(), catalog.Query{Text: "x", PageSize: 25})
		require.NoError(t, err)
		assert.Equal(t, 100, page.Total)
		assert.Equal(t, 4, page.LastPage)
	})
}

func TestClient_GetArticle(t *testing.T) {
	t.Run("returns normalized article", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			writeJSON(t, w, sampleArticle())
		}))
		defer server.Close()

		res, err := newTestClient(server.URL, true).GetArticle(context.Background(), "0a1b2c")
		require.NoError(t, err)
		assert.Equal(t, "/articles/0a1b2c", gotPath)
		assert.Equal(t, "Coral reef resilience", res.Detail.Title)
	})

	t.Run("maps 404 to not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, true).GetArticle(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := newTestClient("http://unused", true).GetArticle(context.Background(), " ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestClient_GetJournal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/journals/j-1", r.URL.Path)
		writeJSON(t, w, sampleJournal())
	}))
	defer server.Close()

	res, err := newTestClient(server.URL, true).Journals().GetByID(context.Background(), "j-1")
	require.NoError(t, err)
	assert.Equal(t, "Journal of Reefs", res.Detail.Title)
}

func TestClient_GetUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	client := newTestClient(serverURL, true)

	_, err := client.GetArticle(context.Background(), "abc123")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "DOAJ", apiErr.Source)
	assert.Zero(t, apiErr.StatusCode)

	_, err = client.Journals().GetByID(context.Background(), "j-1")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestClient_Stats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("pageSize"))
		total := 9000000
		if strings.Contains(r.URL.Path, "/journals/") {
			total = 20000
		}
		writeJSON(t, w, map[string]int{"total": total})
	}))
	defer server.Close()

	stats, err := newTestClient(server.URL, true).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9000000, stats.Articles)
	assert.Equal(t, 20000, stats.Journals)
}

func TestSources(t *testing.T) {
	client := newTestClient("http://unused", false)

	articles := client.Articles()
	assert.Equal(t, domain.SourceKindDOAJArticle, articles.Kind())
	assert.Equal(t, "DOAJ Articles", articles.Name())
	assert.False(t, articles.IsEnabled())

	journals := client.Journals()
	assert.Equal(t, domain.SourceKindDOAJJournal, journals.Kind())
	assert.Equal(t, "DOAJ Journals", journals.Name())
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    catalog.Query
		kind     domain.SourceKind
		expected string
	}{
		{name: "empty", query: catalog.Query{}, kind: domain.SourceKindDOAJArticle, expected: "*"},
		{name: "text only", query: catalog.Query{Text: " reefs "}, kind: domain.SourceKindDOAJArticle, expected: "reefs"},
		{
			name:     "subject browse",
			query:    catalog.Query{Subject: "Physics"},
			kind:     domain.SourceKindDOAJJournal,
			expected: `bibjson.subject.term:"Physics"`,
		},
		{
			name: "article fields",
			query: catalog.Query{Text: "heat", Fields: catalog.FieldQuery{
				Title: "waves", Author: "Ada", DOI: "10.1/x", Publisher: "Ocean",
			}},
			kind:     domain.SourceKindDOAJArticle,
			expected: `heat AND bibjson.title:"waves" AND bibjson.author.name:"Ada" AND bibjson.journal.publisher:"Ocean" AND doi:"10.1/x"`,
		},
		{
			name: "journal fields ignore author and doi",
			query: catalog.Query{Fields: catalog.FieldQuery{
				Author: "Ada", DOI: "10.1/x", Publisher: "Ocean", ISSN: "1234-5678",
			}},
			kind:     domain.SourceKindDOAJJournal,
			expected: `issn:"1234-5678" AND bibjson.publisher.name:"Ocean"`,
		},
		{
			name:     "escapes quotes",
			query:    catalog.Query{Fields: catalog.FieldQuery{Title: `say "hi"`}},
			kind:     domain.SourceKindDOAJArticle,
			expected: `bibjson.title:"say \"hi\""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildQuery(tt.query, tt.kind))
		})
	}
}

func TestClampTotal(t *testing.T) {
	assert.Equal(t, 900, clampTotal(5000, 900))
	assert.Equal(t, 42, clampTotal(42, 900))
	assert.Equal(t, 0, clampTotal(-3, 900))
}

func TestPageFromURL(t *testing.T) {
	assert.Equal(t, 3, pageFromURL("https://doaj.org/api/search/articles/x?page=3&pageSize=10"))
	assert.Equal(t, 0, pageFromURL(""))
	assert.Equal(t, 0, pageFromURL("https://doaj.org/api/search/articles/x"))
	assert.Equal(t, 0, pageFromURL("://bad"))
}

func TestNormalizers_AlwaysHaveTitleAndType(t *testing.T) {
	art := articleToResult(&Article{})
	assert.Equal(t, "", art.Detail.Title)
	assert.Equal(t, domain.TypeNameArticle, art.Type.TypeName)

	jrn := journalToResult(&Journal{})
	assert.Equal(t, "", jrn.Detail.Title)
	assert.Equal(t, domain.TypeNameJournal, jrn.Type.TypeName)
	assert.Empty(t, jrn.Detail.Status)
}

func TestArticleToResult_DOIFallbackURL(t *testing.T) {
	a := sampleArticle()
	a.BibJSON.Link = nil
	res := articleToResult(&a)
	assert.Equal(t, "https://doi.org/10.1234/reef.1", res.Detail.OfficialURL)
}
