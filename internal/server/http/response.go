package httpserver

import (
	"time"

	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/search"
)

// resultResponse is a normalized result plus the source tags clients
// branch on when rendering and linking.
type resultResponse struct {
	domain.Result
	IsDoajArticle  bool `json:"isDoajArticle"`
	IsDoajJournal  bool `json:"isDoajJournal"`
	IsDoabBook     bool `json:"isDoabBook"`
	IsLocalJournal bool `json:"isLocalJournal"`
}

type searchResponse struct {
	Tab        search.Tab            `json:"tab"`
	Results    []resultResponse      `json:"results"`
	Pagination search.Pagination     `json:"pagination"`
	TotalCount int                   `json:"totalCount"`
	Sources    []search.SourceStatus `json:"sources"`
}

type statsResponse struct {
	Articles int `json:"articles"`
	Journals int `json:"journals"`
}

type recordResponse struct {
	ID          string        `json:"id"`
	TypeName    string        `json:"type_name"`
	SubjectName string        `json:"subject_name,omitempty"`
	Department  string        `json:"department,omitempty"`
	Status      string        `json:"status"`
	Detail      domain.Detail `json:"detail"`
	CreatedBy   string        `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type listRecordsResponse struct {
	Records       []recordResponse `json:"records"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	TotalCount    int              `json:"total_count"`
}

type subjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type contentTypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type departmentResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	University string `json:"university,omitempty"`
}

type favouriteResponse struct {
	ResultID  string         `json:"result_id"`
	Source    string         `json:"source"`
	Result    resultResponse `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

// Converter functions

func domainResultToResponse(r domain.Result) resultResponse {
	return resultResponse{
		Result:         r,
		IsDoajArticle:  r.Source == domain.SourceKindDOAJArticle,
		IsDoajJournal:  r.Source == domain.SourceKindDOAJJournal,
		IsDoabBook:     r.Source == domain.SourceKindDOABBook,
		IsLocalJournal: r.Source == domain.SourceKindLocal,
	}
}

func searchToResponse(resp *search.Response) searchResponse {
	results := make([]resultResponse, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = domainResultToResponse(r)
	}
	sources := resp.Sources
	if sources == nil {
		sources = []search.SourceStatus{}
	}
	return searchResponse{
		Tab:        resp.Tab,
		Results:    results,
		Pagination: resp.Pagination,
		TotalCount: resp.TotalCount,
		Sources:    sources,
	}
}

func domainRecordToResponse(r *domain.Record) recordResponse {
	return recordResponse{
		ID:          r.ID.String(),
		TypeName:    r.TypeName,
		SubjectName: r.SubjectName,
		Department:  r.Department,
		Status:      string(r.Status),
		Detail:      r.Detail,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func domainSubjectToResponse(s *domain.Subject) subjectResponse {
	return subjectResponse{ID: s.ID.String(), Name: s.Name, Description: s.Description}
}

func domainContentTypeToResponse(c *domain.ContentType) contentTypeResponse {
	return contentTypeResponse{ID: c.ID.String(), Name: c.Name}
}

func domainDepartmentToResponse(d *domain.Department) departmentResponse {
	return departmentResponse{ID: d.ID.String(), Name: d.Name, University: d.University}
}

func domainFavouriteToResponse(f *domain.Favourite) favouriteResponse {
	return favouriteResponse{
		ResultID:  f.ResultID,
		Source:    string(f.Source),
		Result:    domainResultToResponse(f.Snapshot),
		CreatedAt: f.CreatedAt,
	}
}
