package catalog

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// StripHTML returns the text content of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from whitespace.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CollapseSpace(s)
	}
	return CollapseSpace(doc.Text())
}

// CollapseSpace trims s and replaces runs of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeDate parses a free-form catalog date and returns it as
// YYYY-MM-DD. Bare years and year-month values keep their precision.
// Values that cannot be parsed are returned trimmed but otherwise unchanged.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isDigits(s) && len(s) == 4 {
		return s
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return s
	}
	if len(s) == 7 && s[4] == '-' {
		return t.Format("2006-01")
	}
	return t.Format(time.DateOnly)
}

// Year returns the four digit year of a free-form catalog date, or "".
func Year(s string) string {
	d := NormalizeDate(s)
	if len(d) >= 4 && isDigits(d[:4]) {
		return d[:4]
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
