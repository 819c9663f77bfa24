package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Result is the normalized shape every catalog source is mapped into before
// results from different catalogs are merged, filtered and paginated.
type Result struct {
	// ID is source dependent: a local record UUID, a DOAJ id or a DOAB handle.
	ID      string     `json:"_id"`
	Detail  Detail     `json:"detail"`
	Type    TypeRef    `json:"type"`
	Subject SubjectRef `json:"subject"`
	Source  SourceKind `json:"source"`
}

// Detail holds the descriptive fields of a result. All fields are optional.
type Detail struct {
	Title                     string    `json:"title"`
	Abstract                  string    `json:"abstract,omitempty"`
	Creators                  []Creator `json:"creators,omitempty"`
	Date                      string    `json:"date,omitempty"`
	PublicationDate           string    `json:"publicationDate,omitempty"`
	ISSN                      string    `json:"issn,omitempty"`
	JournalOrPublicationTitle string    `json:"journalOrPublicationTitle,omitempty"`
	Keywords                  string    `json:"keywords,omitempty"`
	Publisher                 string    `json:"publisher,omitempty"`
	Status                    string    `json:"status,omitempty"`
	OfficialURL               string    `json:"officialURL,omitempty"`
	DOI                       string    `json:"doi,omitempty"`
	Volume                    string    `json:"volume,omitempty"`
	Number                    string    `json:"number,omitempty"`
	PageRange                 string    `json:"pageRange,omitempty"`
	Conference                string    `json:"conference,omitempty"`
	BookName                  string    `json:"bookName,omitempty"`
	ISBN                      string    `json:"isbn,omitempty"`
	Department                string    `json:"department,omitempty"`
	University                string    `json:"university,omitempty"`
	Semester                  string    `json:"semester,omitempty"`
	Year                      string    `json:"year,omitempty"`
	Guides                    string    `json:"guides,omitempty"`
	Page                      string    `json:"page,omitempty"`
	Languages                 string    `json:"languages,omitempty"`
	Description               string    `json:"description,omitempty"`
}

// Creator is an author or editor of a result.
type Creator struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// String returns the display name of the creator.
func (c Creator) String() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// SplitName splits a full name into a creator. The last whitespace separated
// token becomes the last name; names in "Last, First" form are honoured.
func SplitName(fullName string) Creator {
	fullName = strings.TrimSpace(fullName)
	if last, first, ok := strings.Cut(fullName, ","); ok {
		return Creator{FirstName: strings.TrimSpace(first), LastName: strings.TrimSpace(last)}
	}
	names := strings.Fields(fullName)
	switch len(names) {
	case 0:
		return Creator{}
	case 1:
		return Creator{LastName: names[0]}
	default:
		return Creator{
			FirstName: strings.Join(names[:len(names)-1], " "),
			LastName:  names[len(names)-1],
		}
	}
}

// JoinKeywords joins keywords into the comma separated form stored in Detail.Keywords.
// Empty entries are dropped.
func JoinKeywords(keywords []string) string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return strings.Join(out, ", ")
}

// CreatorNames returns the display names of all creators.
func (d Detail) CreatorNames() []string {
	names := make([]string, 0, len(d.Creators))
	for _, c := range d.Creators {
		if n := c.String(); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// DateCandidates lists the date fields of d in the order they decide the
// publication year: Year, then Date, then PublicationDate.
func (d Detail) DateCandidates() []string {
	return []string{d.Year, d.Date, d.PublicationDate}
}

// PublicationYear returns the four digit year of the result, taken from the
// first usable entry of DateCandidates. It returns 0 when unknown.
func (d Detail) PublicationYear() int {
	for _, v := range d.DateCandidates() {
		v = strings.TrimSpace(v)
		if len(v) < 4 {
			continue
		}
		if y, err := strconv.Atoi(v[:4]); err == nil && y > 0 {
			return y
		}
	}
	return 0
}

// TypeRef names the content type of a result. It always serializes as an
// object, but also decodes from a bare JSON string.
type TypeRef struct {
	TypeName string `json:"typeName"`
}

// UnmarshalJSON accepts both {"typeName": "..."} and "...".
func (t *TypeRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("decode type name: %w", err)
		}
		t.TypeName = name
		return nil
	}
	type plain TypeRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode type object: %w", err)
	}
	*t = TypeRef(p)
	return nil
}

// SubjectRef names the subject area of a result.
type SubjectRef struct {
	SubjectName string `json:"subjectName"`
}
