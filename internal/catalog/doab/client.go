// Package doab provides a client for the Directory of Open Access Books
// DSpace REST API.
//
// DOAB search does not report totals or page server-side, so every search
// fetches up to Limit items and the search layer slices them locally.
// DOAB is slow under load: a search that exceeds Timeout is retried once
// with FallbackTimeout and the smaller FallbackLimit.
package doab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
)

const (
	// DefaultBaseURL is the default DOAB REST API base URL.
	DefaultBaseURL = "https://directory.doabooks.org/rest"

	// DefaultTimeout is the timeout of the primary search request.
	DefaultTimeout = 30 * time.Second

	// DefaultFallbackTimeout is the timeout of the single fallback request.
	DefaultFallbackTimeout = 10 * time.Second

	// DefaultLimit is the number of items requested per search.
	DefaultLimit = 100

	// DefaultFallbackLimit is the number of items requested by the fallback.
	DefaultFallbackLimit = 25

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 2.0

	handleURLPrefix = "https://directory.doabooks.org/handle/"
)

// Config holds configuration for the DOAB client.
type Config struct {
	// BaseURL is the DOAB REST API base URL.
	BaseURL string

	// Timeout bounds the primary search request.
	Timeout time.Duration

	// FallbackTimeout bounds the fallback request issued after the primary
	// request times out. Must be shorter than Timeout.
	FallbackTimeout time.Duration

	// Limit is the number of items requested per search.
	Limit int

	// FallbackLimit is the reduced number of items the fallback requests.
	FallbackLimit int

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the retry budget for 429 and 5xx responses.
	MaxRetries int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool

	// Metrics records outbound request metrics. Optional.
	Metrics *observability.Metrics

	// Logger receives fallback warnings. Optional.
	Logger *zerolog.Logger
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
	if c.FallbackTimeout == 0 {
		c.FallbackTimeout = DefaultFallbackTimeout
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.FallbackLimit <= 0 {
		c.FallbackLimit = DefaultFallbackLimit
	}
	if c.FallbackLimit > c.Limit {
		c.FallbackLimit = c.Limit
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = int(c.RateLimit)
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}

// Client is a DOAB API client.
type Client struct {
	config     Config
	httpClient *catalog.HTTPClient
	logger     zerolog.Logger
}

// Ensure Client implements the Source interface.
var _ catalog.Source = (*Client)(nil)

// New creates a new DOAB client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := catalog.NewHTTPClient(catalog.HTTPClientConfig{
		Source:     "DOAB",
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		Metrics:    cfg.Metrics,
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a new DOAB client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *catalog.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("component", "doab").Logger(),
	}
}

// Search queries DOAB for books matching q. The returned page holds every
// fetched item; Total is the number of items fetched.
func (c *Client) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	startTime := time.Now()
	q = q.Normalized()
	query := BuildQuery(q)

	ctx = catalog.WithEndpoint(ctx, "search")
	resp, usedFallback, err := c.httpClient.DoWithFallback(ctx, c.config.Timeout, c.config.FallbackTimeout,
		func(ctx context.Context, fallback bool) (*http.Request, error) {
			limit := c.config.Limit
			if fallback {
				limit = c.config.FallbackLimit
			}
			return http.NewRequestWithContext(ctx, http.MethodGet, c.buildSearchURL(query, limit), nil)
		})
	if usedFallback {
		c.logger.Warn().
			Str("query", query).
			Dur("timeout", c.config.Timeout).
			Bool("fallback_failed", err != nil).
			Msg("DOAB search timed out, used fallback request")
	}
	if err != nil {
		return nil, domain.NewExternalAPIError(c.Name(), 0, "request failed", err)
	}
	defer resp.Body.Close()

	if err := c.httpClient.CheckResponse(resp, "", ""); err != nil {
		return nil, err
	}

	var items []Item
	if err := catalog.DecodeJSON(resp.Body, &items); err != nil {
		return nil, err
	}

	results := make([]domain.Result, 0, len(items))
	for i := range items {
		if items[i].Handle == "" {
			continue
		}
		results = append(results, itemToResult(&items[i]))
	}

	return &catalog.Page{
		Results:        results,
		Total:          len(results),
		Page:           q.Page,
		PageSize:       q.PageSize,
		ServerPaged:    false,
		Source:         domain.SourceKindDOABBook,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a book by its handle, e.g. "20.500.12854/12345".
func (c *Client) GetByID(ctx context.Context, handle string) (*domain.Result, error) {
	handle = strings.Trim(strings.TrimSpace(handle), "/")
	if handle == "" {
		return nil, domain.NewValidationError("handle", "is required")
	}

	ctx = catalog.WithEndpoint(ctx, "get")
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildHandleURL(handle), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalAPIError(c.Name(), 0, "request failed", err)
	}
	defer resp.Body.Close()

	if err := c.httpClient.CheckResponse(resp, "book", handle); err != nil {
		return nil, err
	}

	// DSpace answers unknown handles with 200 and a null body.
	var item *Item
	if err := catalog.DecodeJSON(resp.Body, &item); err != nil {
		return nil, err
	}
	if item == nil || item.Handle == "" {
		return nil, domain.NewNotFoundError("book", handle)
	}

	res := itemToResult(item)
	return &res, nil
}

// Kind returns the source kind.
func (c *Client) Kind() domain.SourceKind {
	return domain.SourceKindDOABBook
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return "DOAB"
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(query string, limit int) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("expand", "metadata")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", "0")
	return c.config.BaseURL + "/search?" + params.Encode()
}

func (c *Client) buildHandleURL(handle string) string {
	segments := strings.Split(handle, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.config.BaseURL + "/handle/" + strings.Join(segments, "/") + "?expand=metadata"
}

// BuildQuery compiles a catalog query into a DSpace (Lucene) query string.
func BuildQuery(q catalog.Query) string {
	var clauses []string
	if text := strings.TrimSpace(q.Text); text != "" {
		clauses = append(clauses, text)
	}

	add := func(field, value string) {
		if value = strings.TrimSpace(value); value != "" {
			clauses = append(clauses, field+`:"`+strings.ReplaceAll(value, `"`, `\"`)+`"`)
		}
	}

	f := q.Fields
	add("dc.title", f.Title)
	add("dc.contributor.author", f.Author)
	add("dc.subject.other", f.Keywords)
	add("publisher.name", f.Publisher)
	add("oapen.identifier.doi", f.DOI)
	add("dc.subject.classification", f.Subject)
	add("dc.subject.classification", q.Subject)

	if len(clauses) == 0 {
		return "*"
	}
	return strings.Join(clauses, " AND ")
}
