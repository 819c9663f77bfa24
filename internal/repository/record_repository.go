package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/helixir/catalog-search-service/internal/domain"
)

// RecordRepository persists the records of the local catalog.
type RecordRepository interface {
	// Create inserts a new record. A nil ID is replaced with a new UUID and
	// an empty status defaults to draft.
	Create(ctx context.Context, record *domain.Record) (*domain.Record, error)

	// Get retrieves a record by ID.
	// Returns domain.ErrNotFound if no record exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Record, error)

	// Update replaces the mutable fields of a record.
	// Returns domain.ErrNotFound if no record exists.
	Update(ctx context.Context, record *domain.Record) (*domain.Record, error)

	// Delete removes a record.
	// Returns domain.ErrNotFound if no record exists.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns records matching the filter, newest first, and the
	// total number of matches ignoring limit and offset.
	List(ctx context.Context, filter RecordFilter) ([]*domain.Record, int64, error)

	// Search returns published records matching the search, newest first.
	// It backs the local catalog source; paging happens in the caller.
	Search(ctx context.Context, search RecordSearch) ([]*domain.Record, error)
}

// RecordFilter specifies criteria for listing records.
type RecordFilter struct {
	// Status filters by publication state (optional).
	Status *domain.RecordStatus

	// TypeName matches the content type case-insensitively (optional).
	TypeName string

	// SubjectName matches the subject case-insensitively (optional).
	SubjectName string

	// Department matches the owning department case-insensitively (optional).
	Department string

	// CreatedBy filters by author of the record (optional).
	CreatedBy string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks the filter and applies pagination defaults.
func (f *RecordFilter) Validate() error {
	if f.Status != nil && !f.Status.IsValid() {
		return domain.NewValidationError("status", "unknown record status")
	}
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}

// RecordSearch specifies a text search over published records.
type RecordSearch struct {
	// Text is matched as a substring of the title, abstract, keywords,
	// publisher and journal title. Empty matches every record.
	Text string

	// TypeName restricts results to one content type (optional).
	TypeName string

	// SubjectName restricts results to one subject (optional).
	SubjectName string

	// Limit caps the number of records returned (default: 100, max: 1000).
	Limit int
}

// Normalize trims the search terms and applies the limit default.
func (s *RecordSearch) Normalize() {
	s.Text = strings.TrimSpace(s.Text)
	s.TypeName = strings.TrimSpace(s.TypeName)
	s.SubjectName = strings.TrimSpace(s.SubjectName)
	offset := 0
	applyPaginationDefaults(&s.Limit, &offset)
}
