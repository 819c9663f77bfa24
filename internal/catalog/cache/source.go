// Package cache decorates catalog sources with a response cache.
//
// Searches and lookups are cached under a sha256 key of the source kind and
// the normalized query. Concurrent identical misses share one upstream call,
// which outlives any single caller's cancellation. Cache failures never fail a request: they are logged, counted and bypassed.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/singleflight"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
)

// Defaults for Config.
const (
	DefaultTTL           = 10 * time.Minute
	DefaultKeyPrefix     = "catsearch:catalog:"
	DefaultFlightTimeout = 30 * time.Second
)

// Config holds cache settings.
type Config struct {
	TTL       time.Duration
	KeyPrefix string
	// FlightTimeout bounds a shared upstream call once it no longer
	// follows the cancellation of the caller that started it.
	FlightTimeout time.Duration
	Logger        *zerolog.Logger
	Metrics       *observability.Metrics
}

func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.FlightTimeout <= 0 {
		c.FlightTimeout = DefaultFlightTimeout
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}

// Source is a catalog.Source that caches another source's responses.
type Source struct {
	next    catalog.Source
	store   Store
	config  Config
	logger  zerolog.Logger
	flights singleflight.Group
}

var _ catalog.Source = (*Source)(nil)

// Wrap returns next decorated with store.
func Wrap(next catalog.Source, store Store, cfg Config) *Source {
	cfg.applyDefaults()
	return &Source{
		next:   next,
		store:  store,
		config: cfg,
		logger: observability.WithSourceContext(*cfg.Logger, next.Name(), string(next.Kind())).
			With().Str("component", "catalog_cache").Logger(),
	}
}

// Unwrap returns the decorated source.
func (s *Source) Unwrap() catalog.Source {
	return s.next
}

// Search returns a cached page for q, or searches the wrapped source.
func (s *Source) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	q = q.Normalized()
	key, err := s.key("search", q)
	if err != nil {
		s.fail("key", err)
		return s.next.Search(ctx, q)
	}

	var page catalog.Page
	if s.load(ctx, key, &page) {
		return &page, nil
	}

	v, err := s.share(ctx, key, func(ctx context.Context) (interface{}, error) {
		p, err := s.next.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		s.save(ctx, key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Page), nil
}

// GetByID returns a cached result for id, or fetches it from the wrapped source.
// Errors, including not found, are not cached.
func (s *Source) GetByID(ctx context.Context, id string) (*domain.Result, error) {
	key, err := s.key("get", id)
	if err != nil {
		s.fail("key", err)
		return s.next.GetByID(ctx, id)
	}

	var res domain.Result
	if s.load(ctx, key, &res) {
		return &res, nil
	}

	v, err := s.share(ctx, key, func(ctx context.Context) (interface{}, error) {
		r, err := s.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.save(ctx, key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Result), nil
}

// Kind returns the wrapped source's kind.
func (s *Source) Kind() domain.SourceKind {
	return s.next.Kind()
}

// Name returns the wrapped source's name.
func (s *Source) Name() string {
	return s.next.Name()
}

// IsEnabled returns whether the wrapped source is enabled.
func (s *Source) IsEnabled() bool {
	return s.next.IsEnabled()
}

// share runs fn once per key for all concurrent callers. The call keeps the
// first caller's context values but not its cancellation, so a caller that
// gives up only stops waiting.
func (s *Source) share(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.FlightTimeout)
		defer cancel()
		return fn(flightCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// key derives "<prefix><kind>:<op>:<sha256(json(v))>".
func (s *Source) key(op string, v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return s.config.KeyPrefix + string(s.next.Kind()) + ":" + op + ":" + hex.EncodeToString(sum[:]), nil
}

// load decodes the cached value for key into out and reports a hit.
func (s *Source) load(ctx context.Context, key string, out interface{}) bool {
	b, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		s.config.Metrics.RecordCacheMiss(string(s.next.Kind()))
		return false
	case err != nil:
		s.fail("get", err)
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.fail("decode", err)
		return false
	}
	s.config.Metrics.RecordCacheHit(string(s.next.Kind()))
	return true
}

func (s *Source) save(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		s.fail("encode", err)
		return
	}
	if err := s.store.Set(ctx, key, b, s.config.TTL); err != nil {
		s.fail("set", err)
	}
}

func (s *Source) fail(op string, err error) {
	s.config.Metrics.RecordCacheError(op)
	s.logger.Warn().Err(err).Str("operation", op).Msg("catalog cache unavailable, bypassing")
}
