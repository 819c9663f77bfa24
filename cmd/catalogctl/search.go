package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search one tab of the catalogs",
	Long: `Search runs a tab-scoped search. The home tab lists local records, articles
and journals are paged by DOAJ, books come from DOAB and all merges every
enabled catalog. Filters narrow the fetched results before paging.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("tab", string(search.TabHome), "tab to search: home, articles, journals, books, all")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("per-page", 0, "results per page (default from config)")
	cmd.Flags().String("title", "", "filter by title")
	cmd.Flags().String("author", "", "filter by author name")
	cmd.Flags().String("keyword", "", "filter by keyword")
	cmd.Flags().String("publisher", "", "filter by publisher")
	cmd.Flags().String("type", "", "filter by type name")
	cmd.Flags().String("language", "", "filter by language")
	cmd.Flags().Int("year-from", 0, "earliest publication year")
	cmd.Flags().Int("year-to", 0, "latest publication year")
	cmd.Flags().StringSlice("sources", nil, "limit results to these sources (comma-separated)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	tabName, _ := flags.GetString("tab")
	tab, err := search.ParseTab(tabName)
	if err != nil {
		return err
	}

	var query string
	if len(args) > 0 {
		query = args[0]
	}

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	page, _ := flags.GetInt("page")
	perPage, _ := flags.GetInt("per-page")

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, tab == search.TabHome || tab == search.TabAll)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.service.Search(ctx, search.Request{
		Query:   query,
		Tab:     tab,
		Page:    page,
		PerPage: perPage,
		Filter:  filter,
	})
	if err != nil {
		return err
	}

	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	return formatSearch(cmd.OutOrStdout(), resp)
}

func filterFromFlags(cmd *cobra.Command) (search.Filter, error) {
	flags := cmd.Flags()
	var f search.Filter
	f.Title, _ = flags.GetString("title")
	f.Author, _ = flags.GetString("author")
	f.Keyword, _ = flags.GetString("keyword")
	f.Publisher, _ = flags.GetString("publisher")
	f.Type, _ = flags.GetString("type")
	f.Language, _ = flags.GetString("language")
	f.YearFrom, _ = flags.GetInt("year-from")
	f.YearTo, _ = flags.GetInt("year-to")

	sources, _ := flags.GetStringSlice("sources")
	for _, s := range sources {
		kind := domain.SourceKind(strings.TrimSpace(s))
		if !kind.IsValid() {
			return search.Filter{}, fmt.Errorf("unknown source %q", s)
		}
		f.Sources = append(f.Sources, kind)
	}

	return f, f.Validate()
}
