package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	"github.com/helixir/catalog-search-service/internal/catalog/doaj"
	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/search"
)

var (
	cyan       = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	bold       = lipgloss.NewStyle().Bold(true)
	dim        = lipgloss.NewStyle().Faint(true)
	red        = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
)

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// truncate cuts s to maxLen runes, appending "…" if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Headers(headers...).
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return labelStyle
			}
			return lipgloss.NewStyle()
		})
}

func formatSearch(w io.Writer, resp *search.Response) error {
	p := resp.Pagination
	header := fmt.Sprintf("%s: %d results, page %d of %d", resp.Tab, resp.TotalCount, p.Page, max(p.TotalPages, 1))
	fmt.Fprintln(w, bold.Render(header))

	for _, s := range resp.Sources {
		line := fmt.Sprintf("  %s  total=%d returned=%d %dms", s.Name, s.Total, s.Returned, s.DurationMs)
		if s.Error != "" {
			fmt.Fprintln(w, red.Render(line+"  "+s.Error))
			continue
		}
		fmt.Fprintln(w, dim.Render(line))
	}
	fmt.Fprintln(w)

	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	t := newTable("Source", "ID", "Title", "Year", "Type")
	for _, r := range resp.Results {
		t.Row(
			string(r.Source),
			cyan.Render(truncate(r.ID, 36)),
			truncate(r.Detail.Title, 60),
			year(r.Detail),
			r.Type.TypeName,
		)
	}
	fmt.Fprintln(w, t.Render())

	var nav []string
	if p.HasPrev() {
		nav = append(nav, fmt.Sprintf("--page %d for previous", p.PrevPage))
	}
	if p.HasNext() {
		nav = append(nav, fmt.Sprintf("--page %d for next", p.NextPage))
	}
	if len(nav) > 0 {
		fmt.Fprintln(w, dim.Render(strings.Join(nav, ", ")))
	}
	return nil
}

func formatResult(w io.Writer, r *domain.Result) error {
	d := r.Detail
	var b strings.Builder
	b.WriteString(bold.Render(d.Title))
	b.WriteString("\n")

	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString(labelStyle.Render(label+":") + " " + value + "\n")
	}

	creators := make([]string, 0, len(d.Creators))
	for _, c := range d.Creators {
		creators = append(creators, c.String())
	}

	field("Source", string(r.Source))
	field("ID", r.ID)
	field("Type", r.Type.TypeName)
	field("Subject", r.Subject.SubjectName)
	field("Authors", strings.Join(creators, ", "))
	field("Published", year(d))
	field("Journal", d.JournalOrPublicationTitle)
	field("Publisher", d.Publisher)
	field("ISSN", d.ISSN)
	field("ISBN", d.ISBN)
	field("DOI", d.DOI)
	field("Keywords", d.Keywords)
	field("Languages", d.Languages)
	field("URL", d.OfficialURL)

	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))

	if abstract := firstNonEmpty(d.Abstract, d.Description); abstract != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, abstract)
	}
	return nil
}

func formatStats(w io.Writer, stats *doaj.Stats) error {
	t := newTable("Collection", "Indexed").
		Row("articles", fmt.Sprintf("%d", stats.Articles)).
		Row("journals", fmt.Sprintf("%d", stats.Journals))
	fmt.Fprintln(w, bold.Render("DOAJ"))
	fmt.Fprintln(w, t.Render())
	return nil
}

func year(d domain.Detail) string {
	if y := d.PublicationYear(); y > 0 {
		return strconv.Itoa(y)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
