package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/catalog-search-service/internal/domain"
)

var _ TaxonomyRepository = (*PgTaxonomyRepository)(nil)

// PgTaxonomyRepository is a PostgreSQL implementation of TaxonomyRepository.
type PgTaxonomyRepository struct {
	db DBTX
}

// NewPgTaxonomyRepository creates a new PostgreSQL taxonomy repository.
func NewPgTaxonomyRepository(db DBTX) *PgTaxonomyRepository {
	return &PgTaxonomyRepository{db: db}
}

// ListSubjects returns all subjects ordered by name.
func (r *PgTaxonomyRepository) ListSubjects(ctx context.Context) ([]*domain.Subject, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, created_at FROM subjects ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*domain.Subject, error) {
		var s domain.Subject
		err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt)
		return &s, err
	})
}

// CreateSubject inserts a subject.
func (r *PgTaxonomyRepository) CreateSubject(ctx context.Context, subject *domain.Subject) (*domain.Subject, error) {
	if subject == nil || strings.TrimSpace(subject.Name) == "" {
		return nil, domain.NewValidationError("name", "subject name is required")
	}
	subject.Name = strings.TrimSpace(subject.Name)
	if subject.ID == uuid.Nil {
		subject.ID = uuid.New()
	}
	subject.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO subjects (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		subject.ID, subject.Name, subject.Description, subject.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, domain.NewAlreadyExistsError("subject", subject.Name)
		}
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}
	return subject, nil
}

// ListContentTypes returns all content types ordered by name.
func (r *PgTaxonomyRepository) ListContentTypes(ctx context.Context) ([]*domain.ContentType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM content_types ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list content types: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*domain.ContentType, error) {
		var ct domain.ContentType
		err := row.Scan(&ct.ID, &ct.Name, &ct.CreatedAt)
		return &ct, err
	})
}

// CreateContentType inserts a content type.
func (r *PgTaxonomyRepository) CreateContentType(ctx context.Context, contentType *domain.ContentType) (*domain.ContentType, error) {
	if contentType == nil || strings.TrimSpace(contentType.Name) == "" {
		return nil, domain.NewValidationError("name", "type name is required")
	}
	contentType.Name = strings.TrimSpace(contentType.Name)
	if contentType.ID == uuid.Nil {
		contentType.ID = uuid.New()
	}
	contentType.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO content_types (id, name, created_at) VALUES ($1, $2, $3)`,
		contentType.ID, contentType.Name, contentType.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, domain.NewAlreadyExistsError("content type", contentType.Name)
		}
		return nil, fmt.Errorf("failed to create content type: %w", err)
	}
	return contentType, nil
}

// ListDepartments returns all departments ordered by university and name.
func (r *PgTaxonomyRepository) ListDepartments(ctx context.Context) ([]*domain.Department, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, university, created_at FROM departments ORDER BY lower(university), lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*domain.Department, error) {
		var d domain.Department
		err := row.Scan(&d.ID, &d.Name, &d.University, &d.CreatedAt)
		return &d, err
	})
}

// CreateDepartment inserts a department.
func (r *PgTaxonomyRepository) CreateDepartment(ctx context.Context, department *domain.Department) (*domain.Department, error) {
	if department == nil || strings.TrimSpace(department.Name) == "" {
		return nil, domain.NewValidationError("name", "department name is required")
	}
	department.Name = strings.TrimSpace(department.Name)
	department.University = strings.TrimSpace(department.University)
	if department.ID == uuid.Nil {
		department.ID = uuid.New()
	}
	department.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO departments (id, name, university, created_at) VALUES ($1, $2, $3, $4)`,
		department.ID, department.Name, department.University, department.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, domain.NewAlreadyExistsError("department", department.Name)
		}
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return department, nil
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
