// Package main provides a CLI tool for catalog database migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/catalog-search-service/internal/config"
	"github.com/helixir/catalog-search-service/internal/database"
	"github.com/helixir/catalog-search-service/internal/observability"
)

// connectTimeout bounds the whole migration run, including lock acquisition.
const connectTimeout = 5 * time.Minute

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply, roll back or inspect catalog schema migrations",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().String("path", "", "override the migrations directory")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(true, func(m *database.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(true, func(m *database.Migrator, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "steps <n>",
			Short: "Run n migration steps (positive up, negative down)",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(true, func(m *database.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Force the recorded version, to recover from a failed migration",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(true, func(m *database.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < -1 {
					return fmt.Errorf("version must be an integer >= -1, got %q", args[0])
				}
				return m.Force(v)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(false, func(*database.Migrator, []string) error {
				return nil
			}),
		},
	)
}

// withMigrator connects, builds a migrator and runs action, holding the
// migration lock when the action changes the schema. The resulting version
// is always logged.
func withMigrator(locked bool, action func(*database.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadFrom(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger := observability.NewLogger(observability.LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			TimeFormat: time.RFC3339,
		}).With().Str("component", "migrate").Str("action", cmd.Name()).Logger()

		migrationDir := cfg.Database.MigrationPath
		if p, _ := cmd.Flags().GetString("path"); p != "" {
			migrationDir = p
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
		defer cancel()

		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		migrator, err := database.NewMigrator(db, migrationDir, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		run := func() error { return action(migrator, args) }
		if locked {
			err = database.WithMigrationLock(ctx, db, run)
			if errors.Is(err, database.ErrLockHeld) {
				return fmt.Errorf("another migration is in progress, try again later")
			}
		} else {
			err = run()
		}
		if err != nil {
			return fmt.Errorf("migrate %s: %w", cmd.Name(), err)
		}

		logVersion(migrator, logger)
		return nil
	}
}

func logVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
