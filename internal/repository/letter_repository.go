package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/arsip-biak-api/internal/models"
)

// LetterRepository persists letters, their typed detail rows and their status
// history.
type LetterRepository struct {
	db *sqlx.DB
}

// NewLetterRepository constructs the repository.
func NewLetterRepository(db *sqlx.DB) *LetterRepository {
	return &LetterRepository{db: db}
}

const letterColumns = `l.id, l.name, l.letter_date, l.sender, l.recipient, l.subject,
        l.letter_type, l.current_status, l.file_path, l.created_by, l.created_at, l.updated_at`

// List returns a filtered, paginated page of letters plus the total count.
func (r *LetterRepository) List(ctx context.Context, filter models.LetterFilter) ([]models.Letter, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(l.name) LIKE $%d OR LOWER(l.subject) LIKE $%d OR LOWER(l.sender) LIKE $%d OR LOWER(l.recipient) LIKE $%d)",
			idx, idx, idx, idx))
		args = append(args, pattern)
	}
	if filter.LetterType != "" {
		conditions = append(conditions, fmt.Sprintf("l.letter_type = $%d", len(args)+1))
		args = append(args, filter.LetterType)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("l.current_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("l.letter_date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("l.letter_date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM letters l" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count letters: %w", err)
	}

	allowedSorts := map[string]string{
		"letter_date": "l.letter_date",
		"name":        "l.name",
		"created_at":  "l.created_at",
	}
	sortColumn, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortColumn = "l.letter_date"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM letters l%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		letterColumns, where, sortColumn, sortOrder, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	var letters []models.Letter
	if err := r.db.SelectContext(ctx, &letters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list letters: %w", err)
	}
	return letters, total, nil
}

// FindByID loads a letter together with its details row when one exists.
func (r *LetterRepository) FindByID(ctx context.Context, id int64) (*models.LetterWithDetails, error) {
	var letter models.Letter
	query := fmt.Sprintf("SELECT %s FROM letters l WHERE l.id = $1", letterColumns)
	if err := r.db.GetContext(ctx, &letter, query, id); err != nil {
		return nil, err
	}

	result := &models.LetterWithDetails{Letter: letter}

	var details models.LetterDetails
	err := r.db.GetContext(ctx, &details, `SELECT id, letter_id, nim, nama, jenjang_pendidikan,
        fakultas, program_studi, tanggal_lulus, no_seri, nirl, telepon
        FROM letter_details WHERE letter_id = $1`, id)
	switch err {
	case nil:
		result.Details = &details
	case sql.ErrNoRows:
	default:
		return nil, fmt.Errorf("load letter details: %w", err)
	}
	return result, nil
}

// Create inserts the letter, its optional details row and the initial status
// history entry in one transaction.
func (r *LetterRepository) Create(ctx context.Context, letter *models.Letter, details *models.LetterDetails) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	letter.CreatedAt = now
	letter.UpdatedAt = now

	const insertLetter = `INSERT INTO letters
        (name, letter_date, sender, recipient, subject, letter_type, current_status, file_path, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id`
	err = tx.QueryRowxContext(ctx, insertLetter,
		letter.Name, letter.LetterDate, letter.Sender, letter.Recipient, letter.Subject,
		letter.LetterType, letter.CurrentStatus, letter.FilePath, letter.CreatedBy,
		letter.CreatedAt, letter.UpdatedAt).Scan(&letter.ID)
	if err != nil {
		return fmt.Errorf("insert letter: %w", err)
	}

	if details != nil {
		details.LetterID = letter.ID
		if err = insertLetterDetails(ctx, tx, details); err != nil {
			return err
		}
	}

	if letter.CurrentStatus != nil && *letter.CurrentStatus != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO letter_status_history (letter_id, status, note, created_at) VALUES ($1, $2, NULL, $3)`,
			letter.ID, *letter.CurrentStatus, now)
		if err != nil {
			return fmt.Errorf("insert initial status: %w", err)
		}
	}

	return tx.Commit()
}

// Update rewrites the letter row and replaces its details row. A nil details
// argument removes any existing row, which matches a change to the plain type.
func (r *LetterRepository) Update(ctx context.Context, letter *models.Letter, details *models.LetterDetails) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	letter.UpdatedAt = time.Now().UTC()

	const updateLetter = `UPDATE letters SET
        name = $2, letter_date = $3, sender = $4, recipient = $5, subject = $6,
        letter_type = $7, file_path = $8, updated_at = $9
        WHERE id = $1`
	res, err := tx.ExecContext(ctx, updateLetter,
		letter.ID, letter.Name, letter.LetterDate, letter.Sender, letter.Recipient,
		letter.Subject, letter.LetterType, letter.FilePath, letter.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update letter: %w", err)
	}
	if err = requireAffected(res, "letter"); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM letter_details WHERE letter_id = $1`, letter.ID); err != nil {
		return fmt.Errorf("clear letter details: %w", err)
	}
	if details != nil {
		details.LetterID = letter.ID
		if err = insertLetterDetails(ctx, tx, details); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AppendStatus records a new history entry and refreshes the cached
// current_status in the same transaction.
func (r *LetterRepository) AppendStatus(ctx context.Context, letterID int64, status string, note *string) (entry *models.LetterStatusHistory, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	entry = &models.LetterStatusHistory{LetterID: letterID, Status: status, Note: note, CreatedAt: now}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO letter_status_history (letter_id, status, note, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		letterID, status, note, now).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("insert status history: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE letters SET current_status = $2, updated_at = $3 WHERE id = $1`,
		letterID, status, now)
	if err != nil {
		return nil, fmt.Errorf("update current status: %w", err)
	}
	if err = requireAffected(res, "letter"); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the full status trail for a letter, oldest first.
func (r *LetterRepository) History(ctx context.Context, letterID int64) ([]models.LetterStatusHistory, error) {
	var history []models.LetterStatusHistory
	err := r.db.SelectContext(ctx, &history,
		`SELECT id, letter_id, status, note, created_at FROM letter_status_history
         WHERE letter_id = $1 ORDER BY created_at ASC, id ASC`, letterID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return history, nil
}

// UpdateHistoryItem edits one history entry. The letter id scopes the match so
// an entry can never be edited through another letter's URL. When the edited
// entry is the latest one, the cached current_status follows it.
func (r *LetterRepository) UpdateHistoryItem(ctx context.Context, letterID, historyID int64, status string, note *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE letter_status_history SET status = $3, note = $4 WHERE id = $2 AND letter_id = $1`,
		letterID, historyID, status, note)
	if err != nil {
		return fmt.Errorf("update status history: %w", err)
	}
	if err = requireAffected(res, "status history"); err != nil {
		return err
	}

	if err = refreshCurrentStatus(ctx, tx, letterID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteHistoryItem removes one history entry scoped to its letter and
// recomputes the cached current_status from what remains.
func (r *LetterRepository) DeleteHistoryItem(ctx context.Context, letterID, historyID int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM letter_status_history WHERE id = $2 AND letter_id = $1`, letterID, historyID)
	if err != nil {
		return fmt.Errorf("delete status history: %w", err)
	}
	if err = requireAffected(res, "status history"); err != nil {
		return err
	}

	if err = refreshCurrentStatus(ctx, tx, letterID); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the letter together with its details and history.
func (r *LetterRepository) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM letter_status_history WHERE letter_id = $1`, id); err != nil {
		return fmt.Errorf("delete status history: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM letter_details WHERE letter_id = $1`, id); err != nil {
		return fmt.Errorf("delete letter details: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM letters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete letter: %w", err)
	}
	if err = requireAffected(res, "letter"); err != nil {
		return err
	}
	return tx.Commit()
}

// Rekap aggregates letter counts per period inside [start, end]. Grouping is
// done in Postgres: days as YYYY-MM-DD, ISO weeks as IYYY-IW, months as
// YYYY-MM.
func (r *LetterRepository) Rekap(ctx context.Context, start, end time.Time, groupBy models.RekapGroupBy) ([]models.RekapRow, error) {
	var format string
	switch groupBy {
	case models.RekapByWeek:
		format = "IYYY-IW"
	case models.RekapByMonth:
		format = "YYYY-MM"
	default:
		format = "YYYY-MM-DD"
	}

	query := fmt.Sprintf(`SELECT to_char(letter_date, '%s') AS period, COUNT(*) AS total
        FROM letters
        WHERE letter_date >= $1 AND letter_date <= $2
        GROUP BY period
        ORDER BY period ASC`, format)

	var rows []models.RekapRow
	if err := r.db.SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, fmt.Errorf("rekap letters: %w", err)
	}
	return rows, nil
}

func insertLetterDetails(ctx context.Context, tx *sqlx.Tx, details *models.LetterDetails) error {
	const query = `INSERT INTO letter_details
        (letter_id, nim, nama, jenjang_pendidikan, fakultas, program_studi, tanggal_lulus, no_seri, nirl, telepon)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id`
	err := tx.QueryRowxContext(ctx, query,
		details.LetterID, details.NIM, details.Nama, details.JenjangPendidikan,
		details.Fakultas, details.ProgramStudi, details.TanggalLulus,
		details.NoSeri, details.NIRL, details.Telepon).Scan(&details.ID)
	if err != nil {
		return fmt.Errorf("insert letter details: %w", err)
	}
	return nil
}

// refreshCurrentStatus recomputes letters.current_status from the newest
// remaining history entry, clearing it when the trail is empty.
func refreshCurrentStatus(ctx context.Context, tx *sqlx.Tx, letterID int64) error {
	const query = `UPDATE letters SET current_status = (
            SELECT status FROM letter_status_history
            WHERE letter_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1
        ), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, letterID, time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh current status: %w", err)
	}
	return nil
}
