package search

// DefaultPerPage is the page size used when a request does not name one.
const DefaultPerPage = 10

// Pagination describes the page a response holds. NextPage and PrevPage
// are zero when there is no such page.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
	NextPage   int `json:"nextPage,omitempty"`
	PrevPage   int `json:"prevPage,omitempty"`
}

// HasNext reports whether a later page exists.
func (p Pagination) HasNext() bool { return p.NextPage > 0 }

// HasPrev reports whether an earlier page exists.
func (p Pagination) HasPrev() bool { return p.PrevPage > 0 }

// newPagination builds the pagination for page of a list of total items.
func newPagination(page, perPage, total int) Pagination {
	page, perPage = normalizePage(page, perPage)
	p := Pagination{
		Page:       page,
		PerPage:    perPage,
	}
	if total > 0 {
		p.TotalPages = (total-1)/perPage + 1
	}
	if page < p.TotalPages {
		p.NextPage = page + 1
	}
	if page > 1 {
		p.PrevPage = min(page-1, max(p.TotalPages, 1))
	}
	return p
}

// Paginate returns the 1-based page of items. Each page holds at most
// perPage items; iterating pages 1..TotalPages visits every item exactly
// once, in order. Pages past the end are empty.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	p := newPagination(page, perPage, len(items))

	if p.Page > p.TotalPages {
		return []T{}, p
	}
	start := (p.Page - 1) * p.PerPage
	end := min(start+p.PerPage, len(items))
	return items[start:end:end], p
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return page, perPage
}
