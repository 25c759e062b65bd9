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

// HierarchyRepository persists the six static-field levels through one code
// path. Every query is derived from the level descriptor table, so the
// parent-existence and child-absence rules are applied identically at each
// level instead of being duplicated per table.
type HierarchyRepository struct {
	db *sqlx.DB
}

// NewHierarchyRepository constructs the repository.
func NewHierarchyRepository(db *sqlx.DB) *HierarchyRepository {
	return &HierarchyRepository{db: db}
}

var ancestorNameColumns = map[models.HierarchyLevel]string{
	models.LevelCategory:    "category_name",
	models.LevelSubcategory: "subcategory_name",
	models.LevelLocation:    "location_name",
	models.LevelCabinet:     "cabinet_name",
	models.LevelShelf:       "shelf_name",
}

// baseColumns selects the node columns, aliasing the level-specific parent
// column to the generic parent_id name. Root rows carry a NULL parent.
func baseColumns(desc models.LevelDescriptor) string {
	parent := "NULL AS parent_id"
	if desc.HasParent() {
		parent = fmt.Sprintf("t.%s AS parent_id", desc.ParentColumn)
	}
	return fmt.Sprintf("t.id, t.name, t.description, %s, t.created_at, t.updated_at", parent)
}

// ancestorJoins builds the LEFT JOIN chain up to the root plus the selected
// ancestor name columns for display.
func ancestorJoins(desc models.LevelDescriptor) (string, string) {
	joins := strings.Builder{}
	nameCols := make([]string, 0, 5)

	childAlias := "t"
	childColumn := desc.ParentColumn
	current := desc
	level := 1
	for current.HasParent() {
		parent, ok := models.DescriptorFor(current.ParentLevel)
		if !ok {
			break
		}
		alias := fmt.Sprintf("p%d", level)
		joins.WriteString(fmt.Sprintf(" LEFT JOIN %s %s ON %s.id = %s.%s", parent.Table, alias, alias, childAlias, childColumn))
		nameCols = append(nameCols, fmt.Sprintf("%s.name AS %s", alias, ancestorNameColumns[parent.Level]))

		childAlias = alias
		childColumn = parent.ParentColumn
		current = parent
		level++
	}

	selected := ""
	if len(nameCols) > 0 {
		selected = ", " + strings.Join(nameCols, ", ")
	}
	return joins.String(), selected
}

// List returns every node at the level with ancestor names attached.
func (r *HierarchyRepository) List(ctx context.Context, desc models.LevelDescriptor) ([]models.HierarchyNodeDetail, error) {
	joins, nameCols := ancestorJoins(desc)
	query := fmt.Sprintf("SELECT %s%s FROM %s t%s ORDER BY t.name ASC", baseColumns(desc), nameCols, desc.Table, joins)

	var nodes []models.HierarchyNodeDetail
	if err := r.db.SelectContext(ctx, &nodes, query); err != nil {
		return nil, fmt.Errorf("list %s: %w", desc.Level, err)
	}
	return nodes, nil
}

// ListByParent returns the children of one parent row.
func (r *HierarchyRepository) ListByParent(ctx context.Context, desc models.LevelDescriptor, parentID int64) ([]models.HierarchyNodeDetail, error) {
	if !desc.HasParent() {
		return r.List(ctx, desc)
	}
	joins, nameCols := ancestorJoins(desc)
	query := fmt.Sprintf("SELECT %s%s FROM %s t%s WHERE t.%s = $1 ORDER BY t.name ASC", baseColumns(desc), nameCols, desc.Table, joins, desc.ParentColumn)

	var nodes []models.HierarchyNodeDetail
	if err := r.db.SelectContext(ctx, &nodes, query, parentID); err != nil {
		return nil, fmt.Errorf("list %s by parent: %w", desc.Level, err)
	}
	return nodes, nil
}

// FindByID fetches one node.
func (r *HierarchyRepository) FindByID(ctx context.Context, desc models.LevelDescriptor, id int64) (*models.HierarchyNode, error) {
	query := fmt.Sprintf("SELECT %s FROM %s t WHERE t.id = $1", baseColumns(desc), desc.Table)
	var node models.HierarchyNode
	if err := r.db.GetContext(ctx, &node, query, id); err != nil {
		return nil, err
	}
	return &node, nil
}

// ParentExists checks the referenced row at the immediately enclosing level.
func (r *HierarchyRepository) ParentExists(ctx context.Context, desc models.LevelDescriptor, parentID int64) (bool, error) {
	parent, ok := models.DescriptorFor(desc.ParentLevel)
	if !ok {
		return false, fmt.Errorf("level %s has no parent", desc.Level)
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1 LIMIT 1", parent.Table)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, parentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s parent: %w", desc.Level, err)
	}
	return true, nil
}

// HasChildren reports whether any row at the next level down references the
// node. The leaf level has no children and always deletes freely.
func (r *HierarchyRepository) HasChildren(ctx context.Context, desc models.LevelDescriptor, id int64) (bool, error) {
	if !desc.HasChild() {
		return false, nil
	}
	child, ok := models.DescriptorFor(desc.ChildLevel)
	if !ok {
		return false, fmt.Errorf("unknown child level for %s", desc.Level)
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = $1 LIMIT 1", child.Table, child.ParentColumn)

	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s children: %w", desc.Level, err)
	}
	return true, nil
}

// Create inserts a node and fills its generated id.
func (r *HierarchyRepository) Create(ctx context.Context, desc models.LevelDescriptor, node *models.HierarchyNode) error {
	now := time.Now().UTC()
	node.CreatedAt = now
	node.UpdatedAt = now

	var query string
	var args []interface{}
	if desc.HasParent() {
		query = fmt.Sprintf("INSERT INTO %s (name, description, %s, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id", desc.Table, desc.ParentColumn)
		args = []interface{}{node.Name, node.Description, node.ParentID, node.CreatedAt, node.UpdatedAt}
	} else {
		query = fmt.Sprintf("INSERT INTO %s (name, description, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id", desc.Table)
		args = []interface{}{node.Name, node.Description, node.CreatedAt, node.UpdatedAt}
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&node.ID); err != nil {
		return fmt.Errorf("create %s: %w", desc.Level, err)
	}
	return nil
}

// Update rewrites a node's mutable fields.
func (r *HierarchyRepository) Update(ctx context.Context, desc models.LevelDescriptor, node *models.HierarchyNode) error {
	node.UpdatedAt = time.Now().UTC()

	var query string
	var args []interface{}
	if desc.HasParent() {
		query = fmt.Sprintf("UPDATE %s SET name = $2, description = $3, %s = $4, updated_at = $5 WHERE id = $1", desc.Table, desc.ParentColumn)
		args = []interface{}{node.ID, node.Name, node.Description, node.ParentID, node.UpdatedAt}
	} else {
		query = fmt.Sprintf("UPDATE %s SET name = $2, description = $3, updated_at = $4 WHERE id = $1", desc.Table)
		args = []interface{}{node.ID, node.Name, node.Description, node.UpdatedAt}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", desc.Level, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s update rows: %w", desc.Level, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a node. Child-absence must be checked by the caller first.
func (r *HierarchyRepository) Delete(ctx context.Context, desc models.LevelDescriptor, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", desc.Table)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", desc.Level, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s delete rows: %w", desc.Level, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
