package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/encoding/json"

	"github.com/helixir/catalog-search-service/internal/domain"
)

var _ FavouriteRepository = (*PgFavouriteRepository)(nil)

// PgFavouriteRepository is a PostgreSQL implementation of FavouriteRepository.
type PgFavouriteRepository struct {
	db DBTX
}

// NewPgFavouriteRepository creates a new PostgreSQL favourite repository.
func NewPgFavouriteRepository(db DBTX) *PgFavouriteRepository {
	return &PgFavouriteRepository{db: db}
}

// Add saves a favourite, refreshing the snapshot if it already exists.
func (r *PgFavouriteRepository) Add(ctx context.Context, fav *domain.Favourite) (*domain.Favourite, error) {
	if fav == nil {
		return nil, domain.NewValidationError("favourite", "favourite cannot be nil")
	}
	if strings.TrimSpace(fav.UserID) == "" {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}
	if fav.ResultID == "" {
		fav.ResultID = fav.Snapshot.ID
	}
	if fav.ResultID == "" {
		return nil, domain.NewValidationError("result_id", "result ID is required")
	}
	if fav.Source == "" {
		fav.Source = fav.Snapshot.Source
	}
	if !fav.Source.IsValid() {
		return nil, domain.NewValidationError("source", "unknown source kind")
	}

	snapshotJSON, err := json.Marshal(fav.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO favourites (user_id, result_id, source, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, result_id) DO UPDATE SET
			source = EXCLUDED.source,
			snapshot = EXCLUDED.snapshot
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query, fav.UserID, fav.ResultID, fav.Source, snapshotJSON, time.Now().UTC()).
		Scan(&fav.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add favourite: %w", err)
	}

	return fav, nil
}

// Remove deletes a favourite.
func (r *PgFavouriteRepository) Remove(ctx context.Context, userID, resultID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM favourites WHERE user_id = $1 AND result_id = $2`, userID, resultID)
	if err != nil {
		return fmt.Errorf("failed to remove favourite: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("favourite", resultID)
	}
	return nil
}

// List returns a user's favourites, most recent first.
func (r *PgFavouriteRepository) List(ctx context.Context, userID string) ([]*domain.Favourite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, result_id, source, snapshot, created_at
		FROM favourites
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favourites: %w", err)
	}

	return collect(rows, func(row pgx.Row) (*domain.Favourite, error) {
		var (
			fav          domain.Favourite
			snapshotJSON []byte
		)
		if err := row.Scan(&fav.UserID, &fav.ResultID, &fav.Source, &snapshotJSON, &fav.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(snapshotJSON, &fav.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return &fav, nil
	})
}
