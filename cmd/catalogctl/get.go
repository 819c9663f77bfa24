package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/catalog-search-service/internal/domain"
)

var getCmd = &cobra.Command{
	Use:   "get <source> <id>",
	Short: "Show one result by source and id",
	Long: `Get fetches a single result. Source is one of local, doaj_article,
doaj_journal or doab_book; id is a record UUID, a DOAJ id or a DOAB handle.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := domain.SourceKind(args[0])
		if !kind.IsValid() {
			return fmt.Errorf("unknown source %q", args[0])
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd, kind == domain.SourceKindLocal)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.service.Get(ctx, kind, args[1])
		if err != nil {
			return err
		}

		if asJSON(cmd) {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		return formatResult(cmd.OutOrStdout(), res)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many articles and journals DOAJ indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.service.Stats(ctx)
		if err != nil {
			return err
		}

		if asJSON(cmd) {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		return formatStats(cmd.OutOrStdout(), stats)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
}
