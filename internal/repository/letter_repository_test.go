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

func letterRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "letter_date", "sender", "recipient", "subject",
		"letter_type", "current_status", "file_path", "created_by", "created_at", "updated_at",
	})
}

func TestLetterRepositoryListSearchMatchesRecipient(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)

	where := "(LOWER(l.name) LIKE $1 OR LOWER(l.subject) LIKE $1 OR LOWER(l.sender) LIKE $1 OR LOWER(l.recipient) LIKE $1)"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM letters l WHERE "+where)).
		WithArgs("%biak%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(where)).
		WithArgs("%biak%", 10, 0).
		WillReturnRows(letterRows().AddRow(
			7, "Surat Keterangan Lulus", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			"Fakultas Teknik", "BIAK", "Keterangan lulus",
			models.LetterTypeKeterangan, nil, nil, nil,
			time.Now(), time.Now()))

	letters, total, err := repo.List(context.Background(), models.LetterFilter{
		Search: "BIAK",
		Page:   1,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, letters, 1)
	require.Equal(t, "BIAK", letters[0].Recipient)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryListSecondPageOffset(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM letters l")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(5, 5).
		WillReturnRows(letterRows())

	_, total, err := repo.List(context.Background(), models.LetterFilter{Page: 2, Limit: 5})
	require.NoError(t, err)
	require.Equal(t, 12, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryCreateWithDetails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)
	status := models.StatusDiteruskanFakultas

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO letters")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO letter_details")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO letter_status_history")).
		WithArgs(int64(4), status, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	nim := "2019-1234"
	letter := &models.Letter{
		Name:          "Surat Pengganti Ijazah a.n. Budi",
		LetterDate:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Sender:        "Budi",
		Recipient:     "BIAK",
		Subject:       "Permohonan pengganti ijazah",
		LetterType:    models.LetterTypePenggantiIjazah,
		CurrentStatus: &status,
	}
	details := &models.LetterDetails{NIM: &nim}

	require.NoError(t, repo.Create(context.Background(), letter, details))
	require.Equal(t, int64(4), letter.ID)
	require.Equal(t, int64(4), details.LetterID)
	require.Equal(t, int64(9), details.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryCreatePlainSkipsDetails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO letters")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	letter := &models.Letter{
		Name:       "Surat Masuk Biasa",
		LetterDate: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Sender:     "Dinas",
		Recipient:  "BIAK",
		Subject:    "Pemberitahuan",
		LetterType: models.LetterTypeBiasa,
	}
	require.NoError(t, repo.Create(context.Background(), letter, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryFindByIDLoadsDetails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT l.id, l.name, l.letter_date")).
		WithArgs(int64(4)).
		WillReturnRows(letterRows().AddRow(
			4, "Surat Pengganti Ijazah", time.Now(), "Budi", "BIAK", "Permohonan",
			models.LetterTypePenggantiIjazah, models.StatusDiteruskanFakultas, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM letter_details WHERE letter_id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "letter_id", "nim", "nama", "jenjang_pendidikan", "fakultas", "program_studi", "tanggal_lulus", "no_seri", "nirl", "telepon"}).
			AddRow(9, 4, "2019-1234", "Budi", "S1", nil, nil, nil, nil, nil, nil))

	found, err := repo.FindByID(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, found.Details)
	require.Equal(t, "2019-1234", *found.Details.NIM)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryFindByIDWithoutDetails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT l.id, l.name, l.letter_date")).
		WithArgs(int64(5)).
		WillReturnRows(letterRows().AddRow(
			5, "Surat Masuk Biasa", time.Now(), "Dinas", "BIAK", "Pemberitahuan",
			models.LetterTypeBiasa, nil, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM letter_details WHERE letter_id = $1")).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	found, err := repo.FindByID(context.Background(), 5)
	require.NoError(t, err)
	require.Nil(t, found.Details)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryAppendStatusUpdatesCachedStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)
	note := "Diterima fakultas teknik"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO letter_status_history")).
		WithArgs(int64(4), models.StatusDiteruskanRektor, &note, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(15))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE letters SET current_status = $2")).
		WithArgs(int64(4), models.StatusDiteruskanRektor, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := repo.AppendStatus(context.Background(), 4, models.StatusDiteruskanRektor, &note)
	require.NoError(t, err)
	require.Equal(t, int64(15), entry.ID)
	require.Equal(t, models.StatusDiteruskanRektor, entry.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryDeleteHistoryItemRefreshesStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM letter_status_history WHERE id = $2 AND letter_id = $1")).
		WithArgs(int64(4), int64(15)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE letters SET current_status = (")).
		WithArgs(int64(4), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteHistoryItem(context.Background(), 4, 15))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryHistoryItemScopedToLetter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE letter_status_history SET status = $3")).
		WithArgs(int64(99), int64(15), models.StatusSelesai, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateHistoryItem(context.Background(), 99, 15, models.StatusSelesai, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM letter_status_history WHERE letter_id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM letter_details WHERE letter_id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM letters WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryRekapWeekFormat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLetterRepository(db)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("to_char(letter_date, 'IYYY-IW')")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"period", "total"}).
			AddRow("2024-10", 3).
			AddRow("2024-11", 5))

	rows, err := repo.Rekap(context.Background(), start, end, models.RekapByWeek)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2024-10", rows[0].Period)
	require.Equal(t, 5, rows[1].Total)
	require.NoError(t, mock.ExpectationsWereMet())
}
