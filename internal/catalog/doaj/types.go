package doaj

// SearchResponse is the envelope DOAJ v4 returns for article and journal searches.
type SearchResponse[T any] struct {
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Query    string `json:"query"`
	Results  []T    `json:"results"`
	Next     string `json:"next"`
	Prev     string `json:"prev"`
	Last     string `json:"last"`
}

// Article is a DOAJ article record.
type Article struct {
	ID          string         `json:"id"`
	CreatedDate string         `json:"created_date"`
	LastUpdated string         `json:"last_updated"`
	BibJSON     ArticleBibJSON `json:"bibjson"`
}

// ArticleBibJSON holds the bibliographic data of an article.
type ArticleBibJSON struct {
	Title      string       `json:"title"`
	Abstract   string       `json:"abstract"`
	Year       string       `json:"year"`
	Month      string       `json:"month"`
	Author     []Author     `json:"author"`
	Journal    JournalRef   `json:"journal"`
	Identifier []Identifier `json:"identifier"`
	Keywords   []string     `json:"keywords"`
	Link       []Link       `json:"link"`
	Subject    []Subject    `json:"subject"`
}

// Author is an article author.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	ORCID       string `json:"orcid_id"`
}

// JournalRef is the journal block embedded in an article.
type JournalRef struct {
	Title     string   `json:"title"`
	Volume    string   `json:"volume"`
	Number    string   `json:"number"`
	StartPage string   `json:"start_page"`
	EndPage   string   `json:"end_page"`
	Publisher string   `json:"publisher"`
	ISSNs     []string `json:"issns"`
	Language  []string `json:"language"`
	Country   string   `json:"country"`
}

// Identifier is a typed identifier such as a DOI or ISSN.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Link is an external link attached to an article.
type Link struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Subject is a classification term.
type Subject struct {
	Scheme string `json:"scheme"`
	Term   string `json:"term"`
	Code   string `json:"code"`
}

// Journal is a DOAJ journal record.
type Journal struct {
	ID          string         `json:"id"`
	CreatedDate string         `json:"created_date"`
	LastUpdated string         `json:"last_updated"`
	Admin       JournalAdmin   `json:"admin"`
	BibJSON     JournalBibJSON `json:"bibjson"`
}

// JournalAdmin holds DOAJ editorial flags.
type JournalAdmin struct {
	Seal bool `json:"seal"`
}

// JournalBibJSON holds the bibliographic data of a journal.
type JournalBibJSON struct {
	Title            string    `json:"title"`
	AlternativeTitle string    `json:"alternative_title"`
	PISSN            string    `json:"pissn"`
	EISSN            string    `json:"eissn"`
	Publisher        Publisher `json:"publisher"`
	Keywords         []string  `json:"keywords"`
	Language         []string  `json:"language"`
	Ref              Ref       `json:"ref"`
	Subject          []Subject `json:"subject"`
	OAStart          int       `json:"oa_start"`
}

// Publisher identifies a journal publisher.
type Publisher struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Ref holds journal web links.
type Ref struct {
	Journal     string `json:"journal"`
	OAStatement string `json:"oa_statement"`
	AimsScope   string `json:"aims_scope"`
}
