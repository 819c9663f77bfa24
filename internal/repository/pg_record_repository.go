package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/encoding/json"

	"github.com/helixir/catalog-search-service/internal/domain"
)

var _ RecordRepository = (*PgRecordRepository)(nil)

const recordColumns = `id, type_name, subject_name, department, detail, status, created_by, created_at, updated_at`

// PgRecordRepository is a PostgreSQL implementation of RecordRepository.
type PgRecordRepository struct {
	db DBTX
}

// NewPgRecordRepository creates a new PostgreSQL record repository.
func NewPgRecordRepository(db DBTX) *PgRecordRepository {
	return &PgRecordRepository{db: db}
}

// Create inserts a new record.
func (r *PgRecordRepository) Create(ctx context.Context, record *domain.Record) (*domain.Record, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = domain.RecordStatusDraft
	}

	detailJSON, err := json.Marshal(record.Detail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detail: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO records (
			id, type_name, subject_name, department, detail, status, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		record.ID,
		record.TypeName,
		record.SubjectName,
		record.Department,
		detailJSON,
		record.Status,
		record.CreatedBy,
		now,
		now,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, domain.NewAlreadyExistsError("record", record.ID.String())
		}
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return record, nil
}

// Get retrieves a record by ID.
func (r *PgRecordRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("record", id.String())
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

// Update replaces the mutable fields of a record.
func (r *PgRecordRepository) Update(ctx context.Context, record *domain.Record) (*domain.Record, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, domain.NewValidationError("id", "record ID is required")
	}
	if record.Status == "" {
		record.Status = domain.RecordStatusDraft
	}

	detailJSON, err := json.Marshal(record.Detail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detail: %w", err)
	}

	query := `
		UPDATE records
		SET type_name = $2, subject_name = $3, department = $4, detail = $5, status = $6, updated_at = $7
		WHERE id = $1
		RETURNING created_by, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		record.ID,
		record.TypeName,
		record.SubjectName,
		record.Department,
		detailJSON,
		record.Status,
		time.Now().UTC(),
	).Scan(&record.CreatedBy, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("record", record.ID.String())
		}
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	return record, nil
}

// Delete removes a record.
func (r *PgRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("record", id.String())
	}
	return nil
}

// List returns records matching the filter with the total match count.
func (r *PgRecordRepository) List(ctx context.Context, filter RecordFilter) ([]*domain.Record, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var w whereBuilder
	if filter.Status != nil {
		w.add("status = $%d", *filter.Status)
	}
	if filter.TypeName != "" {
		w.add("lower(type_name) = lower($%d)", filter.TypeName)
	}
	if filter.SubjectName != "" {
		w.add("lower(subject_name) = lower($%d)", filter.SubjectName)
	}
	if filter.Department != "" {
		w.add("lower(department) = lower($%d)", filter.Department)
	}
	if filter.CreatedBy != "" {
		w.add("created_by = $%d", filter.CreatedBy)
	}

	countQuery := "SELECT COUNT(*) FROM records " + w.clause()
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	selectQuery := fmt.Sprintf(`SELECT %s FROM records %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		recordColumns, w.clause(), len(w.args)+1, len(w.args)+2)
	args := append(w.args, filter.Limit, filter.Offset)

	records, err := r.queryRecords(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Search returns published records matching the search.
func (r *PgRecordRepository) Search(ctx context.Context, search RecordSearch) ([]*domain.Record, error) {
	search.Normalize()

	var w whereBuilder
	w.add("status = $%d", domain.RecordStatusPublished)
	if search.Text != "" {
		w.add("search_text LIKE $%d", likePattern(strings.ToLower(search.Text)))
	}
	if search.TypeName != "" {
		w.add("lower(type_name) = lower($%d)", search.TypeName)
	}
	if search.SubjectName != "" {
		w.add("lower(subject_name) = lower($%d)", search.SubjectName)
	}

	query := fmt.Sprintf(`SELECT %s FROM records %s ORDER BY created_at DESC LIMIT $%d`,
		recordColumns, w.clause(), len(w.args)+1)
	args := append(w.args, search.Limit)

	return r.queryRecords(ctx, query, args...)
}

func (r *PgRecordRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*domain.Record, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

func validateRecord(record *domain.Record) error {
	if record == nil {
		return domain.NewValidationError("record", "record cannot be nil")
	}
	if strings.TrimSpace(record.TypeName) == "" {
		return domain.NewValidationError("type_name", "type name is required")
	}
	if strings.TrimSpace(record.Detail.Title) == "" {
		return domain.NewValidationError("detail.title", "title is required")
	}
	if record.Status != "" && !record.Status.IsValid() {
		return domain.NewValidationError("status", "unknown record status")
	}
	return nil
}

// scanRecord scans one row of recordColumns. pgx.Rows satisfies pgx.Row.
func scanRecord(row pgx.Row) (*domain.Record, error) {
	var (
		record     domain.Record
		detailJSON []byte
	)
	if err := row.Scan(
		&record.ID, &record.TypeName, &record.SubjectName, &record.Department, &detailJSON,
		&record.Status, &record.CreatedBy, &record.CreatedAt, &record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(detailJSON) > 0 {
		if err := json.Unmarshal(detailJSON, &record.Detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal detail: %w", err)
		}
	}
	return &record, nil
}

// whereBuilder accumulates numbered SQL conditions and their arguments.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition whose single %d placeholder receives the next
// argument position.
func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}
