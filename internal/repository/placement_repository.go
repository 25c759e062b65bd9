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

// PlacementRepository manages the 3-level archive placement family
// (categories, subcategories, positions). This family is deliberately kept
// apart from the six-level static-field hierarchy.
type PlacementRepository struct {
	db *sqlx.DB
}

// NewPlacementRepository constructs the repository.
func NewPlacementRepository(db *sqlx.DB) *PlacementRepository {
	return &PlacementRepository{db: db}
}

// ListCategories returns every category ordered by name.
func (r *PlacementRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name, created_at FROM categories ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CategoryExistsByName checks for a duplicate name, optionally excluding one id.
func (r *PlacementRepository) CategoryExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := `SELECT 1 FROM categories WHERE LOWER(name) = $1`
	args := []interface{}{strings.ToLower(strings.TrimSpace(name))}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check category name: %w", err)
	}
	return true, nil
}

// CreateCategory inserts a category row.
func (r *PlacementRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	category.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO categories (name, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, category.Name, category.CreatedAt).Scan(&category.ID); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// UpdateCategory renames a category.
func (r *PlacementRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = $2 WHERE id = $1`, category.ID, category.Name)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res, "category")
}

// CategoryInUse reports whether subcategories or archives still reference it.
func (r *PlacementRepository) CategoryInUse(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT 1 WHERE EXISTS (SELECT 1 FROM subcategories WHERE category_id = $1)
        OR EXISTS (SELECT 1 FROM archives WHERE category_id = $1)`
	return existsQuery(ctx, r.db, query, "category references", id)
}

// DeleteCategory removes a category. Reference checks are the caller's job.
func (r *PlacementRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, "category")
}

// ListSubcategories returns subcategories, optionally scoped to a category.
func (r *PlacementRepository) ListSubcategories(ctx context.Context, categoryID *int64) ([]models.Subcategory, error) {
	query := `SELECT id, name, category_id, created_at FROM subcategories`
	var args []interface{}
	if categoryID != nil {
		query += " WHERE category_id = $1"
		args = append(args, *categoryID)
	}
	query += " ORDER BY name ASC"

	var subcategories []models.Subcategory
	if err := r.db.SelectContext(ctx, &subcategories, query, args...); err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	return subcategories, nil
}

// FindSubcategory loads one subcategory.
func (r *PlacementRepository) FindSubcategory(ctx context.Context, id int64) (*models.Subcategory, error) {
	var subcategory models.Subcategory
	if err := r.db.GetContext(ctx, &subcategory, `SELECT id, name, category_id, created_at FROM subcategories WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &subcategory, nil
}

// CreateSubcategory inserts a subcategory row.
func (r *PlacementRepository) CreateSubcategory(ctx context.Context, subcategory *models.Subcategory) error {
	subcategory.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO subcategories (name, category_id, created_at) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, subcategory.Name, subcategory.CategoryID, subcategory.CreatedAt).Scan(&subcategory.ID); err != nil {
		return fmt.Errorf("create subcategory: %w", err)
	}
	return nil
}

// UpdateSubcategory rewrites a subcategory row.
func (r *PlacementRepository) UpdateSubcategory(ctx context.Context, subcategory *models.Subcategory) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subcategories SET name = $2, category_id = $3 WHERE id = $1`, subcategory.ID, subcategory.Name, subcategory.CategoryID)
	if err != nil {
		return fmt.Errorf("update subcategory: %w", err)
	}
	return requireAffected(res, "subcategory")
}

// SubcategoryInUse reports whether archives or positions still reference it.
func (r *PlacementRepository) SubcategoryInUse(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT 1 WHERE EXISTS (SELECT 1 FROM archives WHERE subcategory_id = $1)
        OR EXISTS (SELECT 1 FROM positions WHERE subcategory_id = $1)`
	return existsQuery(ctx, r.db, query, "subcategory references", id)
}

// DeleteSubcategory removes a subcategory row.
func (r *PlacementRepository) DeleteSubcategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	return requireAffected(res, "subcategory")
}

// ListPositions returns positions, optionally scoped to a subcategory.
func (r *PlacementRepository) ListPositions(ctx context.Context, subcategoryID *int64) ([]models.Position, error) {
	query := `SELECT id, name, subcategory_id, created_at FROM positions`
	var args []interface{}
	if subcategoryID != nil {
		query += " WHERE subcategory_id = $1"
		args = append(args, *subcategoryID)
	}
	query += " ORDER BY name ASC"

	var positions []models.Position
	if err := r.db.SelectContext(ctx, &positions, query, args...); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// CreatePosition inserts a position row.
func (r *PlacementRepository) CreatePosition(ctx context.Context, position *models.Position) error {
	position.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO positions (name, subcategory_id, created_at) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, position.Name, position.SubcategoryID, position.CreatedAt).Scan(&position.ID); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	return nil
}

// UpdatePosition rewrites a position row.
func (r *PlacementRepository) UpdatePosition(ctx context.Context, position *models.Position) error {
	res, err := r.db.ExecContext(ctx, `UPDATE positions SET name = $2, subcategory_id = $3 WHERE id = $1`, position.ID, position.Name, position.SubcategoryID)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	return requireAffected(res, "position")
}

// PositionInUse reports whether archives still reference the position.
func (r *PlacementRepository) PositionInUse(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.db, `SELECT 1 FROM archives WHERE position_id = $1 LIMIT 1`, "position references", id)
}

// DeletePosition removes a position row.
func (r *PlacementRepository) DeletePosition(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return requireAffected(res, "position")
}

func existsQuery(ctx context.Context, db *sqlx.DB, query, label string, args ...interface{}) (bool, error) {
	var exists int
	if err := db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", label, err)
	}
	return true, nil
}

func requireAffected(res sql.Result, label string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", label, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
