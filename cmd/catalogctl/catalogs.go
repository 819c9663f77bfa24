package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/catalog/doab"
	"github.com/helixir/catalog-search-service/internal/catalog/doaj"
	"github.com/helixir/catalog-search-service/internal/catalog/local"
	"github.com/helixir/catalog-search-service/internal/config"
	"github.com/helixir/catalog-search-service/internal/database"
	"github.com/helixir/catalog-search-service/internal/observability"
	"github.com/helixir/catalog-search-service/internal/repository"
	"github.com/helixir/catalog-search-service/internal/search"
)

// session holds the catalogs a command works with.
type session struct {
	cfg     *config.Config
	logger  zerolog.Logger
	service *search.Service
	db      *database.DB
}

// Close releases the database pool, if one was opened.
func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// openSession loads configuration and builds the search service. The
// database is only connected when withLocal is set.
func openSession(ctx context.Context, cmd *cobra.Command, withLocal bool) (*session, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  level,
		Format: "console",
		Output: "stderr",
	}).With().Str("component", "catalogctl").Logger()

	s := &session{cfg: cfg, logger: logger}

	doajClient := doaj.New(doaj.Config{
		BaseURL:    cfg.Sources.DOAJ.BaseURL,
		APIKey:     cfg.Sources.DOAJ.APIKey,
		Timeout:    cfg.Sources.DOAJ.Timeout,
		RateLimit:  cfg.Sources.DOAJ.RateLimit,
		MaxRetries: cfg.Sources.DOAJ.MaxRetries,
		PageSize:   cfg.Sources.DOAJ.PageSize,
		MaxTotal:   cfg.Sources.DOAJ.MaxTotal,
		Enabled:    cfg.Sources.DOAJ.Enabled,
	})

	registry := catalog.NewRegistry()
	if withLocal {
		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		s.db = db
		registry.Register(local.New(repository.NewPgRecordRepository(db), local.Config{
			FetchLimit: cfg.Search.LocalFetchLimit,
			Enabled:    true,
		}))
	}
	registry.Register(doajClient.Articles())
	registry.Register(doajClient.Journals())
	registry.Register(doab.New(doab.Config{
		BaseURL:         cfg.Sources.DOAB.BaseURL,
		Timeout:         cfg.Sources.DOAB.Timeout,
		FallbackTimeout: cfg.Sources.DOAB.FallbackTimeout,
		Limit:           cfg.Sources.DOAB.Limit,
		FallbackLimit:   cfg.Sources.DOAB.FallbackLimit,
		RateLimit:       cfg.Sources.DOAB.RateLimit,
		MaxRetries:      cfg.Sources.DOAB.MaxRetries,
		Enabled:         cfg.Sources.DOAB.Enabled,
	}))

	s.service = search.NewService(registry, doajClient, search.Config{
		ResultsPerPage: cfg.Search.ResultsPerPage,
		MaxPerPage:     cfg.Search.MaxPerPage,
		MergeFetch:     cfg.Search.MergeFetch,
		SourceTimeout:  cfg.Search.SourceTimeout,
	}, logger, nil)

	return s, nil
}
