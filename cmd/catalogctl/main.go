// Package main is the entry point for catalogctl, a command line client that
// searches the configured catalogs directly, without going through the HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Search the local catalog, DOAJ and DOAB from the command line",
	Long: `catalogctl runs the same searches as the catalog search service against the
configured catalogs. It reads the service configuration (config.yaml and
CATSEARCH_* environment variables); the local catalog is only opened when a
command needs it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().Bool("json", false, "output as JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level for diagnostics written to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
