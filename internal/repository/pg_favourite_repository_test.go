package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/catalog-search-service/internal/domain"
)

func newTestSnapshot() domain.Result {
	return domain.Result{
		ID:      "20.500.12854/4242",
		Detail:  domain.Detail{Title: "Open Borders"},
		Type:    domain.TypeRef{TypeName: domain.TypeNameBook},
		Subject: domain.SubjectRef{SubjectName: "Politics"},
		Source:  domain.SourceKindDOABBook,
	}
}

func TestPgFavouriteRepository_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("derives id and source from snapshot", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFavouriteRepository(mock)
		now := time.Now().UTC()
		mock.ExpectQuery("INSERT INTO favourites").
			WithArgs("user-1", "20.500.12854/4242", domain.SourceKindDOABBook, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

		fav, err := repo.Add(ctx, &domain.Favourite{UserID: "user-1", Snapshot: newTestSnapshot()})
		require.NoError(t, err)
		assert.Equal(t, "20.500.12854/4242", fav.ResultID)
		assert.Equal(t, domain.SourceKindDOABBook, fav.Source)
		assert.Equal(t, now, fav.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation", func(t *testing.T) {
		repo := NewPgFavouriteRepository(nil)

		_, err := repo.Add(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = repo.Add(ctx, &domain.Favourite{Snapshot: newTestSnapshot()})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "user required")

		_, err = repo.Add(ctx, &domain.Favourite{UserID: "u"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "result id required")

		_, err = repo.Add(ctx, &domain.Favourite{UserID: "u", ResultID: "x", Source: "crossref"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "source must be known")
	})
}

func TestPgFavouriteRepository_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFavouriteRepository(mock)
		mock.ExpectExec("DELETE FROM favourites").
			WithArgs("user-1", "abc").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Remove(ctx, "user-1", "abc"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFavouriteRepository(mock)
		mock.ExpectExec("DELETE FROM favourites").WithArgs("user-1", "abc").WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Remove(ctx, "user-1", "abc"), domain.ErrNotFound)
	})
}

func TestPgFavouriteRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes snapshots", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFavouriteRepository(mock)
		snap := newTestSnapshot()
		snapJSON, err := json.Marshal(snap)
		require.NoError(t, err)
		legacyJSON := []byte(`{"_id":"j1","detail":{"title":"Reefs"},"type":"Journal","subject":{"subjectName":""},"source":"doaj_journal"}`)

		mock.ExpectQuery("FROM favourites").
			WithArgs("user-1").
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "result_id", "source", "snapshot", "created_at"}).
				AddRow("user-1", snap.ID, domain.SourceKindDOABBook, snapJSON, time.Now()).
				AddRow("user-1", "j1", domain.SourceKindDOAJJournal, legacyJSON, time.Now()))

		favs, err := repo.List(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, favs, 2)
		assert.Equal(t, snap, favs[0].Snapshot)
		assert.Equal(t, "Journal", favs[1].Snapshot.Type.TypeName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad snapshot", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFavouriteRepository(mock)
		mock.ExpectQuery("FROM favourites").
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "result_id", "source", "snapshot", "created_at"}).
				AddRow("u", "x", domain.SourceKindLocal, []byte("{"), time.Now()))

		_, err = repo.List(ctx, "u")
		assert.Error(t, err)
	})

	t.Run("query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFavouriteRepository(mock)
		mock.ExpectQuery("FROM favourites").WithArgs("u").WillReturnError(errors.New("boom"))

		_, err = repo.List(ctx, "u")
		assert.ErrorContains(t, err, "failed to list favourites")
	})
}
