// Package domain provides domain models and business logic for the Catalog Search Service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies which catalog produced a search result.
// These values must match the database enum source_kind.
type SourceKind string

const (
	SourceKindLocal       SourceKind = "local"
	SourceKindDOAJArticle SourceKind = "doaj_article"
	SourceKindDOAJJournal SourceKind = "doaj_journal"
	SourceKindDOABBook    SourceKind = "doab_book"
)

// AllSourceKinds lists every known source kind in display order.
var AllSourceKinds = []SourceKind{
	SourceKindLocal,
	SourceKindDOAJArticle,
	SourceKindDOAJJournal,
	SourceKindDOABBook,
}

// IsValid reports whether k is a known source kind.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceKindLocal, SourceKindDOAJArticle, SourceKindDOAJJournal, SourceKindDOABBook:
		return true
	default:
		return false
	}
}

// IsRemote reports whether results of this kind come from an external catalog.
func (k SourceKind) IsRemote() bool {
	return k != SourceKindLocal && k.IsValid()
}

// Well-known content type names. Local records may use any name stored in
// the content_types table; these are the ones the external catalogs map to.
const (
	TypeNameArticle = "Article"
	TypeNameJournal = "Journal"
	TypeNameBook    = "Book"
)

// RecordStatus represents the publication state of a local record.
// These values must match the database enum record_status.
type RecordStatus string

const (
	RecordStatusDraft     RecordStatus = "draft"
	RecordStatusPublished RecordStatus = "published"
	RecordStatusArchived  RecordStatus = "archived"
)

// IsValid reports whether s is a known record status.
func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusDraft, RecordStatusPublished, RecordStatusArchived:
		return true
	default:
		return false
	}
}

// Record is a journal, article, thesis or other item held in this service's
// own database (the "local" source).
type Record struct {
	ID          uuid.UUID
	TypeName    string
	SubjectName string
	Department  string
	Detail      Detail
	Status      RecordStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ToResult normalizes a local record into the shared result shape.
func (r *Record) ToResult() Result {
	detail := r.Detail
	if detail.Department == "" {
		detail.Department = r.Department
	}
	if detail.Status == "" {
		detail.Status = string(r.Status)
	}
	return Result{
		ID:      r.ID.String(),
		Detail:  detail,
		Type:    TypeRef{TypeName: r.TypeName},
		Subject: SubjectRef{SubjectName: r.SubjectName},
		Source:  SourceKindLocal,
	}
}

// Subject is a subject area used to classify records.
type Subject struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}

// ContentType is a record type such as "Journal Article" or "Thesis".
type ContentType struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Department is an academic department that owns local records.
type Department struct {
	ID         uuid.UUID
	Name       string
	University string
	CreatedAt  time.Time
}

// Favourite is a result a user saved. The snapshot keeps remote results
// viewable even when the external catalog is unreachable.
type Favourite struct {
	UserID    string
	ResultID  string
	Source    SourceKind
	Snapshot  Result
	CreatedAt time.Time
}
