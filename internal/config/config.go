// Package config provides configuration management for the catalog search service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "CATSEARCH"

// Config holds all configuration for the catalog search service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Redis contains catalog response cache settings.
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka contains record event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Sources contains external catalog API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// Search contains aggregation and pagination settings.
	Search SearchConfig `mapstructure:"search"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from CATSEARCH_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// RedisConfig holds catalog cache settings.
type RedisConfig struct {
	// Enabled turns on caching of external catalog responses.
	Enabled bool `mapstructure:"enabled"`
	// Address is the Redis host:port.
	Address string `mapstructure:"address"`
	// Password is the Redis password (loaded from CATSEARCH_REDIS_PASSWORD).
	Password string `mapstructure:"-"`
	// DB is the Redis logical database.
	DB int `mapstructure:"db"`
	// TTL is how long catalog responses stay cached.
	TTL time.Duration `mapstructure:"ttl"`
	// KeyPrefix prefixes every cache key.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig holds record event publisher settings.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic record events are published to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// SourcesConfig holds configuration for every external catalog.
type SourcesConfig struct {
	// DOAJ contains Directory of Open Access Journals API settings.
	DOAJ DOAJConfig `mapstructure:"doaj"`
	// DOAB contains Directory of Open Access Books API settings.
	DOAB DOABConfig `mapstructure:"doab"`
}

// SourceConfig holds the settings shared by every external catalog.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable only).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxRetries is the retry budget for 429/5xx responses.
	MaxRetries int `mapstructure:"max_retries"`
}

// DOAJConfig holds DOAJ settings.
type DOAJConfig struct {
	SourceConfig `mapstructure:",squash"`
	// PageSize is the number of results requested per DOAJ page.
	PageSize int `mapstructure:"page_size"`
	// MaxTotal caps the total DOAJ reports for articles and journals.
	MaxTotal int `mapstructure:"max_total"`
}

// DOABConfig holds DOAB settings.
type DOABConfig struct {
	SourceConfig `mapstructure:",squash"`
	// Limit is the number of items requested per search.
	Limit int `mapstructure:"limit"`
	// FallbackTimeout is the timeout of the single retry after the primary request times out.
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout"`
	// FallbackLimit is the reduced item count requested by the fallback request.
	FallbackLimit int `mapstructure:"fallback_limit"`
}

// SearchConfig holds aggregation settings.
type SearchConfig struct {
	// ResultsPerPage is the default page size for client-side pagination.
	ResultsPerPage int `mapstructure:"results_per_page"`
	// MaxPerPage caps the page size a caller can request.
	MaxPerPage int `mapstructure:"max_per_page"`
	// LocalFetchLimit caps how many local records are loaded before client-side filtering.
	LocalFetchLimit int `mapstructure:"local_fetch_limit"`
	// MergeFetch is how many results are requested from each remote catalog
	// when their results are merged.
	MergeFetch int `mapstructure:"merge_fetch"`
	// SourceTimeout bounds each source call made during an aggregated search.
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration like Load, reading the given config file
// instead of searching the default locations when path is non-empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/catalog-search-service")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.Redis.Password = os.Getenv(EnvPrefix + "_REDIS_PASSWORD")
	cfg.Sources.DOAJ.APIKey = os.Getenv(EnvPrefix + "_SOURCES_DOAJ_API_KEY")
	cfg.Sources.DOAB.APIKey = os.Getenv(EnvPrefix + "_SOURCES_DOAB_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "catsearch")
	v.SetDefault("database.name", "catalog_search_service")
	// Use CATSEARCH_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "catalog_search")

	// Redis cache defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "10m")
	v.SetDefault("redis.key_prefix", "catsearch:catalog:")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.catalog_search_service.records")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// DOAJ defaults
	v.SetDefault("sources.doaj.enabled", true)
	v.SetDefault("sources.doaj.base_url", "https://doaj.org/api")
	v.SetDefault("sources.doaj.timeout", "20s")
	v.SetDefault("sources.doaj.rate_limit", 2.0) // DOAJ asks clients to stay at or below 2 req/sec
	v.SetDefault("sources.doaj.max_retries", 2)
	v.SetDefault("sources.doaj.page_size", 10)
	v.SetDefault("sources.doaj.max_total", 900)

	// DOAB defaults
	v.SetDefault("sources.doab.enabled", true)
	v.SetDefault("sources.doab.base_url", "https://directory.doabooks.org/rest")
	v.SetDefault("sources.doab.timeout", "30s")
	v.SetDefault("sources.doab.rate_limit", 2.0)
	v.SetDefault("sources.doab.max_retries", 1)
	v.SetDefault("sources.doab.limit", 100)
	v.SetDefault("sources.doab.fallback_timeout", "10s")
	v.SetDefault("sources.doab.fallback_limit", 25)

	// Search defaults
	v.SetDefault("search.results_per_page", 10)
	v.SetDefault("search.max_per_page", 100)
	v.SetDefault("search.local_fetch_limit", 1000)
	v.SetDefault("search.merge_fetch", 100)
	v.SetDefault("search.source_timeout", "45s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}
	switch c.Database.SSLMode {
	case SSLModeDisable, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
	default:
		return fmt.Errorf("invalid database ssl_mode: %q", c.Database.SSLMode)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required when redis is enabled")
		}
		if c.Redis.TTL <= 0 {
			return fmt.Errorf("redis ttl must be positive")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.Sources.DOAJ.Enabled {
		if c.Sources.DOAJ.BaseURL == "" {
			return fmt.Errorf("doaj base_url is required")
		}
		if c.Sources.DOAJ.PageSize <= 0 || c.Sources.DOAJ.PageSize > 100 {
			return fmt.Errorf("doaj page_size must be between 1 and 100")
		}
		if c.Sources.DOAJ.MaxTotal <= 0 {
			return fmt.Errorf("doaj max_total must be positive")
		}
	}
	if c.Sources.DOAB.Enabled {
		if c.Sources.DOAB.BaseURL == "" {
			return fmt.Errorf("doab base_url is required")
		}
		if c.Sources.DOAB.FallbackTimeout >= c.Sources.DOAB.Timeout {
			return fmt.Errorf("doab fallback_timeout (%s) must be shorter than timeout (%s)",
				c.Sources.DOAB.FallbackTimeout, c.Sources.DOAB.Timeout)
		}
	}

	if c.Search.ResultsPerPage <= 0 {
		return fmt.Errorf("search results_per_page must be positive")
	}
	if c.Search.MaxPerPage < c.Search.ResultsPerPage {
		return fmt.Errorf("search max_per_page (%d) must be >= results_per_page (%d)",
			c.Search.MaxPerPage, c.Search.ResultsPerPage)
	}

	return nil
}
