// Package doaj provides a client for the Directory of Open Access Journals
// v4 search API. One client backs two catalog sources: articles and journals.
package doaj

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
)

const (
	// DefaultBaseURL is the default DOAJ API base URL.
	DefaultBaseURL = "https://doaj.org/api"

	// DefaultRateLimit is the request rate DOAJ asks clients to stay under.
	DefaultRateLimit = 2.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultPageSize is the default number of results per DOAJ page.
	DefaultPageSize = 10

	// MaxPageSize is the largest page DOAJ serves.
	MaxPageSize = 100

	// DefaultMaxTotal caps the totals reported for searches.
	DefaultMaxTotal = 900

	// matchAll is sent when a search carries no criteria.
	matchAll = "*"
)

// Config holds configuration for the DOAJ client.
type Config struct {
	// BaseURL is the DOAJ API base URL.
	// Defaults to https://doaj.org/api
	BaseURL string

	// APIKey is optional; anonymous access covers search and lookup.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the retry budget for 429 and 5xx responses.
	MaxRetries int

	// PageSize is the default number of results per page.
	PageSize int

	// MaxTotal caps the total reported for both article and journal
	// searches; LastPage is derived from the capped total.
	MaxTotal int

	// Enabled indicates whether the DOAJ sources are enabled.
	Enabled bool

	// Metrics records outbound request metrics. Optional.
	Metrics *observability.Metrics
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = int(c.RateLimit)
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	if c.MaxTotal <= 0 {
		c.MaxTotal = DefaultMaxTotal
	}
}

// Client is a DOAJ API client.
type Client struct {
	config     Config
	httpClient *catalog.HTTPClient
}

// New creates a new DOAJ client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := catalog.NewHTTPClient(catalog.HTTPClientConfig{
		Source:     "DOAJ",
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		Metrics:    cfg.Metrics,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new DOAJ client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *catalog.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Articles returns the article search source backed by this client.
func (c *Client) Articles() *ArticleSource {
	return &ArticleSource{client: c}
}

// Journals returns the journal search source backed by this client.
func (c *Client) Journals() *JournalSource {
	return &JournalSource{client: c}
}

// SearchArticles searches DOAJ articles.
func (c *Client) SearchArticles(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	return search(ctx, c, "articles", domain.SourceKindDOAJArticle, q, articleToResult)
}

// SearchJournals searches DOAJ journals.
func (c *Client) SearchJournals(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	return search(ctx, c, "journals", domain.SourceKindDOAJJournal, q, journalToResult)
}

// GetArticle retrieves a single article by DOAJ id.
func (c *Client) GetArticle(ctx context.Context, id string) (*domain.Result, error) {
	var article Article
	if err := c.get(ctx, "articles", "article", id, &article); err != nil {
		return nil, err
	}
	res := articleToResult(&article)
	return &res, nil
}

// GetJournal retrieves a single journal by DOAJ id.
func (c *Client) GetJournal(ctx context.Context, id string) (*domain.Result, error) {
	var journal Journal
	if err := c.get(ctx, "journals", "journal", id, &journal); err != nil {
		return nil, err
	}
	res := journalToResult(&journal)
	return &res, nil
}

// Stats holds the unclamped number of records DOAJ indexes.
type Stats struct {
	Articles int `json:"articles"`
	Journals int `json:"journals"`
}

// Stats returns the total number of articles and journals DOAJ indexes.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	articles, err := c.rawTotal(ctx, "articles")
	if err != nil {
		return nil, fmt.Errorf("counting articles: %w", err)
	}
	journals, err := c.rawTotal(ctx, "journals")
	if err != nil {
		return nil, fmt.Errorf("counting journals: %w", err)
	}
	return &Stats{Articles: articles, Journals: journals}, nil
}

func (c *Client) rawTotal(ctx context.Context, collection string) (int, error) {
	return c.count(catalog.WithEndpoint(ctx, "stats"), collection, matchAll)
}

// count returns the unclamped number of matches for query.
func (c *Client) count(ctx context.Context, collection, query string) (int, error) {
	var resp SearchResponse[struct{}]
	searchURL := c.buildSearchURL(collection, query, 1, 1)
	if err := c.fetch(ctx, searchURL, "", "", &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// search runs a search against one DOAJ collection and normalizes the results.
func search[T any](ctx context.Context, c *Client, collection string, kind domain.SourceKind,
	q catalog.Query, normalize func(*T) domain.Result) (*catalog.Page, error) {
	startTime := time.Now()

	q = q.Normalized()
	pageSize := q.PageSize
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	query := BuildQuery(q, kind)

	// Pages past the capped total are never requested; only the total is
	// fetched so the empty page still reports where the results end.
	maxPage := lastPage(c.config.MaxTotal, pageSize)
	if q.Page > maxPage {
		n, err := c.count(catalog.WithEndpoint(ctx, "count_"+collection), collection, query)
		if err != nil {
			return nil, err
		}
		page := catalog.EmptyPage(kind, q)
		page.PageSize = pageSize
		page.ServerPaged = true
		page.Total = clampTotal(n, c.config.MaxTotal)
		page.LastPage = lastPage(page.Total, pageSize)
		if page.Total > 0 {
			page.PrevPage = page.LastPage
		}
		page.SearchDuration = time.Since(startTime)
		return page, nil
	}

	searchURL := c.buildSearchURL(collection, query, q.Page, pageSize)

	var resp SearchResponse[T]
	if err := c.fetch(catalog.WithEndpoint(ctx, "search_"+collection), searchURL, "", "", &resp); err != nil {
		return nil, err
	}

	results := make([]domain.Result, 0, len(resp.Results))
	for i := range resp.Results {
		results = append(results, normalize(&resp.Results[i]))
	}

	total := clampTotal(resp.Total, c.config.MaxTotal)
	last := lastPage(total, pageSize)
	if p := pageFromURL(resp.Last); p > 0 && p < last {
		last = p
	}

	page := &catalog.Page{
		Results:        results,
		Total:          total,
		Page:           q.Page,
		PageSize:       pageSize,
		LastPage:       last,
		ServerPaged:    true,
		Source:         kind,
		SearchDuration: time.Since(startTime),
	}
	if next := pageFromURL(resp.Next); next > 0 && next <= last {
		page.NextPage = next
	}
	if prev := pageFromURL(resp.Prev); prev > 0 {
		page.PrevPage = prev
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, collection, entity, id string, out interface{}) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewValidationError("id", "is required")
	}
	fetchURL := fmt.Sprintf("%s/%s/%s", c.config.BaseURL, collection, url.PathEscape(id))
	return c.fetch(catalog.WithEndpoint(ctx, "get_"+collection), fetchURL, entity, id, out)
}

func (c *Client) fetch(ctx context.Context, rawURL, entity, id string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.config.APIKey != "" {
		params := req.URL.Query()
		params.Set("api_key", c.config.APIKey)
		req.URL.RawQuery = params.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError("DOAJ", 0, "request failed", err)
	}
	defer resp.Body.Close()

	if err := c.httpClient.CheckResponse(resp, entity, id); err != nil {
		return err
	}
	return catalog.DecodeJSON(resp.Body, out)
}

func (c *Client) buildSearchURL(collection, query string, page, pageSize int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return fmt.Sprintf("%s/search/%s/%s?%s", c.config.BaseURL, collection, url.PathEscape(query), params.Encode())
}

// BuildQuery compiles a catalog query into a DOAJ query string. Field terms
// become quoted field clauses joined with AND; an empty query matches all.
func BuildQuery(q catalog.Query, kind domain.SourceKind) string {
	var clauses []string
	if text := strings.TrimSpace(q.Text); text != "" {
		clauses = append(clauses, text)
	}

	add := func(field, value string) {
		if value = strings.TrimSpace(value); value != "" {
			clauses = append(clauses, fmt.Sprintf("%s:%s", field, quote(value)))
		}
	}

	f := q.Fields
	add("bibjson.title", f.Title)
	add("bibjson.keywords", f.Keywords)
	add("issn", f.ISSN)
	if kind == domain.SourceKindDOAJJournal {
		add("bibjson.publisher.name", f.Publisher)
	} else {
		add("bibjson.author.name", f.Author)
		add("bibjson.journal.publisher", f.Publisher)
		add("doi", f.DOI)
	}
	add("bibjson.subject.term", f.Subject)
	add("bibjson.subject.term", q.Subject)

	if len(clauses) == 0 {
		return matchAll
	}
	return strings.Join(clauses, " AND ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// clampTotal caps a reported total at maxTotal.
func clampTotal(total, maxTotal int) int {
	return min(max(total, 0), maxTotal)
}

// lastPage returns the last 1-based page for total results, at least 1.
func lastPage(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// pageFromURL extracts the page parameter from a DOAJ cursor URL.
func pageFromURL(raw string) int {
	if raw == "" {
		return 0
	}
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || p < 1 {
		return 0
	}
	return p
}

// ArticleSource exposes DOAJ article search as a catalog source.
type ArticleSource struct {
	client *Client
}

// Ensure ArticleSource implements the Source interface.
var _ catalog.Source = (*ArticleSource)(nil)

// Search searches DOAJ articles.
func (s *ArticleSource) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	return s.client.SearchArticles(ctx, q)
}

// GetByID retrieves a DOAJ article.
func (s *ArticleSource) GetByID(ctx context.Context, id string) (*domain.Result, error) {
	return s.client.GetArticle(ctx, id)
}

// Kind returns the source kind.
func (s *ArticleSource) Kind() domain.SourceKind { return domain.SourceKindDOAJArticle }

// Name returns the human-readable name for this source.
func (s *ArticleSource) Name() string { return "DOAJ Articles" }

// IsEnabled returns whether this source is enabled.
func (s *ArticleSource) IsEnabled() bool { return s.client.config.Enabled }

// JournalSource exposes DOAJ journal search as a catalog source.
type JournalSource struct {
	client *Client
}

// Ensure JournalSource implements the Source interface.
var _ catalog.Source = (*JournalSource)(nil)

// Search searches DOAJ journals.
func (s *JournalSource) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	return s.client.SearchJournals(ctx, q)
}

// GetByID retrieves a DOAJ journal.
func (s *JournalSource) GetByID(ctx context.Context, id string) (*domain.Result, error) {
	return s.client.GetJournal(ctx, id)
}

// Kind returns the source kind.
func (s *JournalSource) Kind() domain.SourceKind { return domain.SourceKindDOAJJournal }

// Name returns the human-readable name for this source.
func (s *JournalSource) Name() string { return "DOAJ Journals" }

// IsEnabled returns whether this source is enabled.
func (s *JournalSource) IsEnabled() bool { return s.client.config.Enabled }
