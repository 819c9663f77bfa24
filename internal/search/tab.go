package search

import (
	"strings"

	"github.com/helixir/catalog-search-service/internal/domain"
)

// Tab selects which catalogs a search covers and how it is paged.
type Tab string

const (
	// TabHome searches local records, paged client-side.
	TabHome Tab = "home"
	// TabArticles searches DOAJ articles, paged by DOAJ.
	TabArticles Tab = "articles"
	// TabJournals searches DOAJ journals, paged by DOAJ.
	TabJournals Tab = "journals"
	// TabBooks searches DOAB books, paged client-side.
	TabBooks Tab = "books"
	// TabAll merges every enabled catalog, paged client-side.
	TabAll Tab = "all"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabHome, TabArticles, TabJournals, TabBooks, TabAll}

// ParseTab parses a tab name. An empty name selects TabHome.
func ParseTab(s string) (Tab, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TabHome, nil
	}
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", domain.NewValidationError("tab", "unknown tab "+s)
}

// Sources returns the catalogs a tab searches; nil means every enabled catalog.
func (t Tab) Sources() []domain.SourceKind {
	switch t {
	case TabHome:
		return []domain.SourceKind{domain.SourceKindLocal}
	case TabArticles:
		return []domain.SourceKind{domain.SourceKindDOAJArticle}
	case TabJournals:
		return []domain.SourceKind{domain.SourceKindDOAJJournal}
	case TabBooks:
		return []domain.SourceKind{domain.SourceKindDOABBook}
	default:
		return nil
	}
}

// TypeSource maps a content type name to the external catalog that holds
// that type. It returns false for types only the local catalog knows.
func TypeSource(typeName string) (domain.SourceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(typeName)) {
	case "article", "articles":
		return domain.SourceKindDOAJArticle, true
	case "journal", "journals":
		return domain.SourceKindDOAJJournal, true
	case "book", "books":
		return domain.SourceKindDOABBook, true
	default:
		return "", false
	}
}
