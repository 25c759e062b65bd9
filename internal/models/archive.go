package models

import "time"

// Category is the root of the archive placement taxonomy.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subcategory narrows a category for archive placement.
type Subcategory struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	CategoryID int64     `db:"category_id" json:"category_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Position is the physical slot an archive occupies. It belongs to the same
// 3-level placement family as Category and Subcategory; the richer six-level
// static-field hierarchy is managed separately.
type Position struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	SubcategoryID *int64    `db:"subcategory_id" json:"subcategory_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Archive represents one catalogued physical document record.
type Archive struct {
	ID            int64      `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	Description   *string    `db:"description" json:"description,omitempty"`
	CategoryID    *int64     `db:"category_id" json:"category_id,omitempty"`
	SubcategoryID *int64     `db:"subcategory_id" json:"subcategory_id,omitempty"`
	PositionID    *int64     `db:"position_id" json:"position_id,omitempty"`
	ArchiveDate   *time.Time `db:"archive_date" json:"archive_date,omitempty"`
	Location      *string    `db:"location" json:"location,omitempty"`
	ImagePath     *string    `db:"image_path" json:"image_path,omitempty"`
	CreatedBy     *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ArchiveDetail augments an archive row with placement names for display.
type ArchiveDetail struct {
	Archive
	CategoryName    *string `db:"category_name" json:"category_name,omitempty"`
	SubcategoryName *string `db:"subcategory_name" json:"subcategory_name,omitempty"`
	PositionName    *string `db:"position_name" json:"position_name,omitempty"`
}

// ArchiveFilter captures filtering criteria for listing archives.
type ArchiveFilter struct {
	Search        string
	CategoryID    *int64
	CategoryName  string
	SubcategoryID *int64
	PositionID    *int64
	Page          int
	Limit         int
	SortBy        string
	SortOrder     string
}
