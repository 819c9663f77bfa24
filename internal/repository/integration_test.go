//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/catalog-search-service/internal/domain"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("catalog_search_test"),
		postgres.WithUsername("catsearch"),
		postgres.WithPassword("catsearch"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		return 1
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get connection string: %v\n", err)
		return 1
	}

	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve migrations: %v\n", err)
		return 1
	}
	migrator, err := migrate.New("file://"+migrationsDir, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create migrator: %v\n", err)
		return 1
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		return 1
	}

	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		return 1
	}
	defer testPool.Close()

	return m.Run()
}

func cleanTables(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		_, err := testPool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err)
	}
}

func TestIntegration_RecordLifecycle(t *testing.T) {
	cleanTables(t, "records")
	ctx := context.Background()
	repo := NewPgRecordRepository(testPool)

	published, err := repo.Create(ctx, &domain.Record{
		TypeName:    "Article",
		SubjectName: "Physics",
		Status:      domain.RecordStatusPublished,
		Detail:      domain.Detail{Title: "Quantum Dots", Keywords: "nano, optics"},
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.Record{
		TypeName: "Article",
		Detail:   domain.Detail{Title: "Quantum draft"},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quantum Dots", got.Detail.Title)

	results, err := repo.Search(ctx, RecordSearch{Text: "QUANTUM"})
	require.NoError(t, err)
	require.Len(t, results, 1, "drafts are not searchable")
	assert.Equal(t, published.ID, results[0].ID)

	results, err = repo.Search(ctx, RecordSearch{Text: "optics", SubjectName: "physics"})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	records, total, err := repo.List(ctx, RecordFilter{TypeName: "article"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, records, 2)

	got.Status = domain.RecordStatusArchived
	_, err = repo.Update(ctx, got)
	require.NoError(t, err)

	results, err = repo.Search(ctx, RecordSearch{Text: "quantum"})
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, repo.Delete(ctx, got.ID))
	_, err = repo.Get(ctx, got.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntegration_Taxonomy(t *testing.T) {
	cleanTables(t, "subjects", "departments")
	ctx := context.Background()
	repo := NewPgTaxonomyRepository(testPool)

	_, err := repo.CreateSubject(ctx, &domain.Subject{Name: "Physics"})
	require.NoError(t, err)
	_, err = repo.CreateSubject(ctx, &domain.Subject{Name: "physics"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	types, err := repo.ListContentTypes(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(types), 5, "seeded content types")

	_, err = repo.CreateDepartment(ctx, &domain.Department{Name: "Physics", University: "A"})
	require.NoError(t, err)
	_, err = repo.CreateDepartment(ctx, &domain.Department{Name: "Physics", University: "B"})
	require.NoError(t, err)

	deps, err := repo.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}

func TestIntegration_Favourites(t *testing.T) {
	cleanTables(t, "favourites")
	ctx := context.Background()
	repo := NewPgFavouriteRepository(testPool)

	snap := domain.Result{ID: "1/2", Detail: domain.Detail{Title: "Book"}, Type: domain.TypeRef{TypeName: "Book"}, Source: domain.SourceKindDOABBook}
	_, err := repo.Add(ctx, &domain.Favourite{UserID: "u1", Snapshot: snap})
	require.NoError(t, err)

	snap.Detail.Title = "Book, 2nd ed."
	_, err = repo.Add(ctx, &domain.Favourite{UserID: "u1", Snapshot: snap})
	require.NoError(t, err)

	favs, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Book, 2nd ed.", favs[0].Snapshot.Detail.Title)

	require.NoError(t, repo.Remove(ctx, "u1", "1/2"))
	assert.ErrorIs(t, repo.Remove(ctx, "u1", "1/2"), domain.ErrNotFound)
}
