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

// ArchiveRepository handles archive catalog persistence.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

const archiveDetailColumns = `a.id, a.title, a.description, a.category_id, a.subcategory_id, a.position_id,
       a.archive_date, a.location, a.image_path, a.created_by, a.created_at, a.updated_at,
       c.name AS category_name, sc.name AS subcategory_name, p.name AS position_name`

const archiveDetailJoins = `FROM archives a
       LEFT JOIN categories c ON c.id = a.category_id
       LEFT JOIN subcategories sc ON sc.id = a.subcategory_id
       LEFT JOIN positions p ON p.id = a.position_id`

// List returns archives matching the provided filters with a total count.
func (r *ArchiveRepository) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveDetail, int, error) {
	base := archiveDetailJoins + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(a.title) LIKE $%d OR LOWER(a.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("a.category_id = $%d", len(args)+1))
		args = append(args, *filter.CategoryID)
	} else if filter.CategoryName != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.CategoryName))
	}
	if filter.SubcategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("a.subcategory_id = $%d", len(args)+1))
		args = append(args, *filter.SubcategoryID)
	}
	if filter.PositionID != nil {
		conditions = append(conditions, fmt.Sprintf("a.position_id = $%d", len(args)+1))
		args = append(args, *filter.PositionID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":        "a.title",
		"archive_date": "a.archive_date",
		"created_at":   "a.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "a.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", archiveDetailColumns, base, column, order, limit, offset)

	var archives []models.ArchiveDetail
	if err := r.db.SelectContext(ctx, &archives, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list archives: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(a.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count archives: %w", err)
	}
	return archives, total, nil
}

// FindByID fetches one archive with placement names.
func (r *ArchiveRepository) FindByID(ctx context.Context, id int64) (*models.ArchiveDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.id = $1", archiveDetailColumns, archiveDetailJoins)
	var detail models.ArchiveDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindPosition loads a placement position row.
func (r *ArchiveRepository) FindPosition(ctx context.Context, id int64) (*models.Position, error) {
	const query = `SELECT id, name, subcategory_id, created_at FROM positions WHERE id = $1`
	var position models.Position
	if err := r.db.GetContext(ctx, &position, query, id); err != nil {
		return nil, err
	}
	return &position, nil
}

// Create inserts an archive. When category or subcategory arrive as names the
// rows are resolved, creating them on first use, inside the same transaction
// as the archive insert so a failure leaves no orphaned placement rows.
func (r *ArchiveRepository) Create(ctx context.Context, archive *models.Archive, categoryName, subcategoryName string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create archive tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = resolvePlacementNames(ctx, tx, archive, categoryName, subcategoryName); err != nil {
		return err
	}

	now := time.Now().UTC()
	archive.CreatedAt = now
	archive.UpdatedAt = now

	const query = `INSERT INTO archives (title, description, category_id, subcategory_id, position_id, archive_date, location, image_path, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err = tx.QueryRowxContext(ctx, query,
		archive.Title, archive.Description, archive.CategoryID, archive.SubcategoryID, archive.PositionID,
		archive.ArchiveDate, archive.Location, archive.ImagePath, archive.CreatedBy, archive.CreatedAt, archive.UpdatedAt,
	).Scan(&archive.ID); err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create archive tx: %w", err)
	}
	return nil
}

// Update rewrites an archive row, resolving placement names like Create.
func (r *ArchiveRepository) Update(ctx context.Context, archive *models.Archive, categoryName, subcategoryName string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update archive tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = resolvePlacementNames(ctx, tx, archive, categoryName, subcategoryName); err != nil {
		return err
	}

	archive.UpdatedAt = time.Now().UTC()
	const query = `UPDATE archives SET title = $2, description = $3, category_id = $4, subcategory_id = $5, position_id = $6,
        archive_date = $7, location = $8, image_path = $9, updated_at = $10 WHERE id = $1`
	res, execErr := tx.ExecContext(ctx, query,
		archive.ID, archive.Title, archive.Description, archive.CategoryID, archive.SubcategoryID, archive.PositionID,
		archive.ArchiveDate, archive.Location, archive.ImagePath, archive.UpdatedAt,
	)
	if execErr != nil {
		err = fmt.Errorf("update archive: %w", execErr)
		return err
	}
	affected, raErr := res.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("check archive update rows: %w", raErr)
		return err
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update archive tx: %w", err)
	}
	return nil
}

// Delete removes an archive row.
func (r *ArchiveRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archives WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete archive: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archive delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// resolvePlacementNames fills CategoryID/SubcategoryID from names, creating
// missing rows. Ids already supplied on the archive take precedence.
func resolvePlacementNames(ctx context.Context, tx *sqlx.Tx, archive *models.Archive, categoryName, subcategoryName string) error {
	if archive.CategoryID == nil && categoryName != "" {
		id, err := lookupOrCreate(ctx, tx, "categories", categoryName, nil)
		if err != nil {
			return err
		}
		archive.CategoryID = &id
	}
	if archive.SubcategoryID == nil && subcategoryName != "" {
		id, err := lookupOrCreate(ctx, tx, "subcategories", subcategoryName, archive.CategoryID)
		if err != nil {
			return err
		}
		archive.SubcategoryID = &id
	}
	return nil
}

func lookupOrCreate(ctx context.Context, tx *sqlx.Tx, table, name string, categoryID *int64) (int64, error) {
	var id int64
	query := fmt.Sprintf("SELECT id FROM %s WHERE LOWER(name) = $1 LIMIT 1", table)
	err := tx.GetContext(ctx, &id, query, strings.ToLower(strings.TrimSpace(name)))
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup %s by name: %w", table, err)
	}

	if table == "subcategories" {
		query = "INSERT INTO subcategories (name, category_id, created_at) VALUES ($1, $2, $3) RETURNING id"
		err = tx.QueryRowxContext(ctx, query, strings.TrimSpace(name), categoryID, time.Now().UTC()).Scan(&id)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (name, created_at) VALUES ($1, $2) RETURNING id", table)
		err = tx.QueryRowxContext(ctx, query, strings.TrimSpace(name), time.Now().UTC()).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("create %s %q: %w", table, name, err)
	}
	return id, nil
}
