package doab

import (
	"strings"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
)

// itemToResult normalizes a DOAB item. The handle is the result ID.
func itemToResult(it *Item) domain.Result {
	title := it.First("dc.title")
	if title == "" {
		title = it.Name
	}

	issued := it.First("dc.date.issued")

	detail := domain.Detail{
		Title:       catalog.CollapseSpace(title),
		Abstract:    catalog.StripHTML(it.First("dc.description.abstract")),
		Description: catalog.StripHTML(it.First("dc.description")),
		Date:        catalog.NormalizeDate(issued),
		Year:        catalog.Year(issued),
		Keywords:    domain.JoinKeywords(it.All("dc.subject.other")),
		Languages:   strings.Join(it.All("dc.language"), ", "),
		DOI:         it.First("oapen.identifier.doi"),
		ISBN:        strings.Join(it.All("oapen.relation.isbn"), ", "),
		Publisher:   it.First("publisher.name"),
		Page:        it.First("oapen.pages"),
		OfficialURL: it.First("dc.identifier.uri"),
	}
	if detail.OfficialURL == "" && it.Handle != "" {
		detail.OfficialURL = handleURLPrefix + it.Handle
	}

	names := it.All("dc.contributor.author")
	if len(names) == 0 {
		names = it.All("dc.contributor.editor")
	}
	for _, n := range names {
		if c := domain.SplitName(n); c != (domain.Creator{}) {
			detail.Creators = append(detail.Creators, c)
		}
	}

	return domain.Result{
		ID:      it.Handle,
		Detail:  detail,
		Type:    domain.TypeRef{TypeName: domain.TypeNameBook},
		Subject: domain.SubjectRef{SubjectName: classification(it.First("dc.subject.classification"))},
		Source:  domain.SourceKindDOABBook,
	}
}

// classification returns the most specific label of a thema/BIC path such
// as "thema EDItEUR::J Society::JP Politics", dropping the leading code.
func classification(v string) string {
	if i := strings.LastIndex(v, "::"); i >= 0 {
		v = v[i+2:]
	}
	v = strings.TrimSpace(v)
	if code, label, ok := strings.Cut(v, " "); ok && isCode(code) {
		return strings.TrimSpace(label)
	}
	return v
}

// isCode reports whether s looks like a thema/BIC subject code (e.g. "JP", "JPA1").
func isCode(s string) bool {
	if len(s) == 0 || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
