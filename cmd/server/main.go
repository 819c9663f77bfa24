// Package main provides the entry point for the catalog search HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/catalog/cache"
	"github.com/helixir/catalog-search-service/internal/catalog/doab"
	"github.com/helixir/catalog-search-service/internal/catalog/doaj"
	"github.com/helixir/catalog-search-service/internal/catalog/local"
	"github.com/helixir/catalog-search-service/internal/config"
	"github.com/helixir/catalog-search-service/internal/database"
	"github.com/helixir/catalog-search-service/internal/events"
	"github.com/helixir/catalog-search-service/internal/observability"
	"github.com/helixir/catalog-search-service/internal/repository"
	"github.com/helixir/catalog-search-service/internal/search"
	httpserver "github.com/helixir/catalog-search-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("catalog-search-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
		metricsHandler = promhttp.Handler()
	}

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationPath, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create repositories.
	recordRepo := repository.NewPgRecordRepository(db)
	taxonomyRepo := repository.NewPgTaxonomyRepository(db)
	favouriteRepo := repository.NewPgFavouriteRepository(db)

	// Catalog sources.
	doajClient := doaj.New(doaj.Config{
		BaseURL:    cfg.Sources.DOAJ.BaseURL,
		APIKey:     cfg.Sources.DOAJ.APIKey,
		Timeout:    cfg.Sources.DOAJ.Timeout,
		RateLimit:  cfg.Sources.DOAJ.RateLimit,
		MaxRetries: cfg.Sources.DOAJ.MaxRetries,
		PageSize:   cfg.Sources.DOAJ.PageSize,
		MaxTotal:   cfg.Sources.DOAJ.MaxTotal,
		Enabled:    cfg.Sources.DOAJ.Enabled,
		Metrics:    metrics,
	})
	doabClient := doab.New(doab.Config{
		BaseURL:         cfg.Sources.DOAB.BaseURL,
		Timeout:         cfg.Sources.DOAB.Timeout,
		FallbackTimeout: cfg.Sources.DOAB.FallbackTimeout,
		Limit:           cfg.Sources.DOAB.Limit,
		FallbackLimit:   cfg.Sources.DOAB.FallbackLimit,
		RateLimit:       cfg.Sources.DOAB.RateLimit,
		MaxRetries:      cfg.Sources.DOAB.MaxRetries,
		Enabled:         cfg.Sources.DOAB.Enabled,
		Metrics:         metrics,
	})
	remote := []catalog.Source{doajClient.Articles(), doajClient.Journals(), doabClient}

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close redis client")
			}
		}()

		store := cache.NewRedisStore(redisClient)
		if err := store.Ping(ctx); err != nil {
			// Not fatal: cache failures are bypassed per request.
			logger.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("redis unreachable at startup")
		}
		remote = wrapSources(remote, store, cfg.Redis, logger, metrics)
		logger.Info().Str("address", cfg.Redis.Address).Dur("ttl", cfg.Redis.TTL).Msg("catalog cache enabled")
	}

	registry := catalog.NewRegistry()
	registry.Register(local.New(recordRepo, local.Config{
		FetchLimit: cfg.Search.LocalFetchLimit,
		Enabled:    true,
	}))
	for _, source := range remote {
		registry.Register(source)
	}

	searchService := search.NewService(registry, doajClient, search.Config{
		ResultsPerPage: cfg.Search.ResultsPerPage,
		MaxPerPage:     cfg.Search.MaxPerPage,
		MergeFetch:     cfg.Search.MergeFetch,
		SourceTimeout:  cfg.Search.SourceTimeout,
	}, logger, metrics)

	// Record change events.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		if err != nil {
			return fmt.Errorf("create kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("record events enabled")
	}
	emitter := events.NewRecordEmitter(publisher, logger, metrics)
	defer func() {
		if err := emitter.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsPath:     cfg.Metrics.Path,
	}

	httpSrv := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Search:         searchService,
		Records:        recordRepo,
		Taxonomy:       taxonomyRepo,
		Favourites:     favouriteRepo,
		Events:         emitter,
		Health:         db,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	}, logger)

	// Channel to collect server errors.
	errCh := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Bool("doaj_enabled", cfg.Sources.DOAJ.Enabled).
		Bool("doab_enabled", cfg.Sources.DOAB.Enabled).
		Msg("catalog-search-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down catalog-search-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("catalog-search-service shutdown complete")
	return nil
}

// wrapSources puts the response cache in front of each remote source.
func wrapSources(sources []catalog.Source, store cache.Store, cfg config.RedisConfig, logger zerolog.Logger, metrics *observability.Metrics) []catalog.Source {
	wrapped := make([]catalog.Source, 0, len(sources))
	for _, s := range sources {
		wrapped = append(wrapped, cache.Wrap(s, store, cache.Config{
			TTL:       cfg.TTL,
			KeyPrefix: cfg.KeyPrefix,
			Logger:    &logger,
			Metrics:   metrics,
		}))
	}
	return wrapped
}
