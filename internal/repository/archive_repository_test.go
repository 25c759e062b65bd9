package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arsip-biak-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func archiveDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "category_id", "subcategory_id", "position_id",
		"archive_date", "location", "image_path", "created_by", "created_at", "updated_at",
		"category_name", "subcategory_name", "position_name",
	})
}

func TestArchiveRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)
	catID := int64(3)
	rows := archiveDetailRows().
		AddRow(1, "SK Rektor 2024", nil, catID, nil, nil, nil, nil, nil, nil, time.Now(), time.Now(), "Keputusan", nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.title, a.description")).
		WithArgs("%rektor%", catID).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(a.id)")).
		WithArgs("%rektor%", catID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	archives, total, err := repo.List(context.Background(), models.ArchiveFilter{
		Search:     "Rektor",
		CategoryID: &catID,
		Page:       1,
		Limit:      20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, archives, 1)
	require.Equal(t, "SK Rektor 2024", archives[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryCreateResolvesNames(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE LOWER(name) = $1")).
		WithArgs("keputusan").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO categories (name, created_at)")).
		WithArgs("Keputusan", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subcategories WHERE LOWER(name) = $1")).
		WithArgs("sk rektor").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO archives")).
		WithArgs("SK Rektor 2024", nil, int64(7), int64(12), nil, sqlmock.AnyArg(), nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectCommit()

	archive := &models.Archive{Title: "SK Rektor 2024"}
	require.NoError(t, repo.Create(context.Background(), archive, "Keputusan", "SK Rektor"))
	require.Equal(t, int64(21), archive.ID)
	require.NotNil(t, archive.CategoryID)
	require.Equal(t, int64(7), *archive.CategoryID)
	require.NotNil(t, archive.SubcategoryID)
	require.Equal(t, int64(12), *archive.SubcategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryCreateRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO archives")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	catID := int64(7)
	archive := &models.Archive{Title: "SK Rektor 2024", CategoryID: &catID}
	require.Error(t, repo.Create(context.Background(), archive, "", ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)
	rows := archiveDetailRows().
		AddRow(5, "Arsip Kepegawaian", "berkas", 2, 4, 9, time.Now(), "Gudang A", "uploads/archives/a.png", "user-1", time.Now(), time.Now(), "Kepegawaian", "Mutasi", "Rak 2 Baris 1")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.title, a.description")).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "Arsip Kepegawaian", detail.Title)
	require.NotNil(t, detail.PositionName)
	require.Equal(t, "Rak 2 Baris 1", *detail.PositionName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM archives WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), 99), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
