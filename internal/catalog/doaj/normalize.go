package doaj

import (
	"fmt"
	"strings"

	"github.com/helixir/catalog-search-service/internal/catalog"
	"github.com/helixir/catalog-search-service/internal/domain"
)

const (
	doiURLPrefix = "https://doi.org/"

	// sealStatus marks journals holding the DOAJ Seal.
	sealStatus = "DOAJ Seal"
)

// articleToResult normalizes a DOAJ article.
func articleToResult(a *Article) domain.Result {
	b := &a.BibJSON

	detail := domain.Detail{
		Title:                     catalog.CollapseSpace(b.Title),
		Abstract:                  catalog.StripHTML(b.Abstract),
		JournalOrPublicationTitle: catalog.CollapseSpace(b.Journal.Title),
		Keywords:                  domain.JoinKeywords(b.Keywords),
		Publisher:                 b.Journal.Publisher,
		Volume:                    b.Journal.Volume,
		Number:                    b.Journal.Number,
		PageRange:                 pageRange(b.Journal.StartPage, b.Journal.EndPage),
		Languages:                 strings.Join(b.Journal.Language, ", "),
		Year:                      strings.TrimSpace(b.Year),
		Date:                      articleDate(b.Year, b.Month),
		PublicationDate:           catalog.NormalizeDate(a.CreatedDate),
	}

	for _, author := range b.Author {
		if c := domain.SplitName(author.Name); c != (domain.Creator{}) {
			detail.Creators = append(detail.Creators, c)
		}
	}

	for _, id := range b.Identifier {
		switch strings.ToLower(id.Type) {
		case "doi":
			if detail.DOI == "" {
				detail.DOI = normalizeDOI(id.ID)
			}
		case "pissn":
			detail.ISSN = id.ID
		case "eissn":
			if detail.ISSN == "" {
				detail.ISSN = id.ID
			}
		}
	}
	if detail.ISSN == "" && len(b.Journal.ISSNs) > 0 {
		detail.ISSN = b.Journal.ISSNs[0]
	}

	detail.OfficialURL = fulltextURL(b.Link)
	if detail.OfficialURL == "" && detail.DOI != "" {
		detail.OfficialURL = doiURLPrefix + detail.DOI
	}

	return domain.Result{
		ID:      a.ID,
		Detail:  detail,
		Type:    domain.TypeRef{TypeName: domain.TypeNameArticle},
		Subject: domain.SubjectRef{SubjectName: firstTerm(b.Subject)},
		Source:  domain.SourceKindDOAJArticle,
	}
}

// journalToResult normalizes a DOAJ journal.
func journalToResult(j *Journal) domain.Result {
	b := &j.BibJSON

	detail := domain.Detail{
		Title:           catalog.CollapseSpace(b.Title),
		ISSN:            firstNonEmpty(b.PISSN, b.EISSN),
		Publisher:       b.Publisher.Name,
		Keywords:        domain.JoinKeywords(b.Keywords),
		Languages:       strings.Join(b.Language, ", "),
		OfficialURL:     b.Ref.Journal,
		Description:     catalog.CollapseSpace(b.AlternativeTitle),
		PublicationDate: catalog.NormalizeDate(j.CreatedDate),
	}
	if b.OAStart > 0 {
		detail.Year = fmt.Sprintf("%d", b.OAStart)
	}
	if j.Admin.Seal {
		detail.Status = sealStatus
	}

	return domain.Result{
		ID:      j.ID,
		Detail:  detail,
		Type:    domain.TypeRef{TypeName: domain.TypeNameJournal},
		Subject: domain.SubjectRef{SubjectName: firstTerm(b.Subject)},
		Source:  domain.SourceKindDOAJJournal,
	}
}

// articleDate formats year and month as YYYY or YYYY-MM.
func articleDate(year, month string) string {
	year = strings.TrimSpace(year)
	month = strings.TrimSpace(month)
	if year == "" {
		return ""
	}
	if month == "" {
		return year
	}
	if len(month) == 1 {
		month = "0" + month
	}
	return year + "-" + month
}

func pageRange(start, end string) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + "-" + end
	default:
		return start + end
	}
}

func fulltextURL(links []Link) string {
	for _, l := range links {
		if strings.EqualFold(l.Type, "fulltext") && l.URL != "" {
			return l.URL
		}
	}
	return ""
}

func firstTerm(subjects []Subject) string {
	for _, s := range subjects {
		if t := strings.TrimSpace(s.Term); t != "" {
			return t
		}
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

// normalizeDOI strips resolver prefixes from a DOI.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			return doi[len(prefix):]
		}
	}
	return doi
}
