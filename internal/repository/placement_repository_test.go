package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arsip-biak-api/internal/models"
)

func TestPlacementRepositoryCategoryLifecycle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPlacementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM categories WHERE LOWER(name) = $1")).
		WithArgs("keputusan").
		WillReturnError(sql.ErrNoRows)
	exists, err := repo.CategoryExistsByName(context.Background(), "Keputusan", 0)
	require.NoError(t, err)
	require.False(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO categories (name, created_at)")).
		WithArgs("Keputusan", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	category := &models.Category{Name: "Keputusan"}
	require.NoError(t, repo.CreateCategory(context.Background(), category))
	require.Equal(t, int64(3), category.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementRepositoryCategoryInUse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPlacementRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 WHERE EXISTS (SELECT 1 FROM subcategories WHERE category_id = $1)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	inUse, err := repo.CategoryInUse(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, inUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementRepositoryListPositionsBySubcategory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPlacementRepository(db)
	subID := int64(4)
	mock.ExpectQuery(regexp.QuoteMeta("FROM positions WHERE subcategory_id = $1 ORDER BY name ASC")).
		WithArgs(subID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "subcategory_id", "created_at"}).
			AddRow(9, "Rak 2 Baris 1", subID, time.Now()))

	positions, err := repo.ListPositions(context.Background(), &subID)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, "Rak 2 Baris 1", positions[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementRepositoryDeletePositionMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPlacementRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM positions WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.DeletePosition(context.Background(), 42), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
