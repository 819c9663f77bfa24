package repository

import (
	"context"

	"github.com/helixir/catalog-search-service/internal/domain"
)

// TaxonomyRepository manages the lookup tables that classify local records:
// subjects, content types and departments. Names are unique case-insensitively.
type TaxonomyRepository interface {
	// ListSubjects returns all subjects ordered by name.
	ListSubjects(ctx context.Context) ([]*domain.Subject, error)

	// CreateSubject inserts a subject.
	// Returns domain.ErrAlreadyExists if the name is taken.
	CreateSubject(ctx context.Context, subject *domain.Subject) (*domain.Subject, error)

	// ListContentTypes returns all content types ordered by name.
	ListContentTypes(ctx context.Context) ([]*domain.ContentType, error)

	// CreateContentType inserts a content type.
	// Returns domain.ErrAlreadyExists if the name is taken.
	CreateContentType(ctx context.Context, contentType *domain.ContentType) (*domain.ContentType, error)

	// ListDepartments returns all departments ordered by university and name.
	ListDepartments(ctx context.Context) ([]*domain.Department, error)

	// CreateDepartment inserts a department.
	// Returns domain.ErrAlreadyExists if the name is taken within the university.
	CreateDepartment(ctx context.Context, department *domain.Department) (*domain.Department, error)
}
