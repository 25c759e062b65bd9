package models

import "time"

// HierarchyLevel identifies one of the six static-field levels describing
// physical storage organisation.
type HierarchyLevel string

const (
	LevelCategory    HierarchyLevel = "categories"
	LevelSubcategory HierarchyLevel = "subcategories"
	LevelLocation    HierarchyLevel = "locations"
	LevelCabinet     HierarchyLevel = "cabinets"
	LevelShelf       HierarchyLevel = "shelves"
	LevelPosition    HierarchyLevel = "positions"
)

// LevelDescriptor describes how one hierarchy level maps onto its table and
// its immediate neighbours. The descriptor table drives the parent-existence
// and child-absence checks uniformly across all six levels.
type LevelDescriptor struct {
	Level        HierarchyLevel
	Table        string
	ParentLevel  HierarchyLevel
	ParentColumn string
	ChildLevel   HierarchyLevel
}

var levelDescriptors = []LevelDescriptor{
	{Level: LevelCategory, Table: "static_categories", ChildLevel: LevelSubcategory},
	{Level: LevelSubcategory, Table: "static_subcategories", ParentLevel: LevelCategory, ParentColumn: "category_id", ChildLevel: LevelLocation},
	{Level: LevelLocation, Table: "static_locations", ParentLevel: LevelSubcategory, ParentColumn: "subcategory_id", ChildLevel: LevelCabinet},
	{Level: LevelCabinet, Table: "static_cabinets", ParentLevel: LevelLocation, ParentColumn: "location_id", ChildLevel: LevelShelf},
	{Level: LevelShelf, Table: "static_shelves", ParentLevel: LevelCabinet, ParentColumn: "cabinet_id", ChildLevel: LevelPosition},
	{Level: LevelPosition, Table: "static_positions", ParentLevel: LevelShelf, ParentColumn: "shelf_id"},
}

// Levels returns the descriptors ordered root to leaf.
func Levels() []LevelDescriptor {
	return levelDescriptors
}

// DescriptorFor resolves a level key to its descriptor.
func DescriptorFor(level HierarchyLevel) (LevelDescriptor, bool) {
	for _, d := range levelDescriptors {
		if d.Level == level {
			return d, true
		}
	}
	return LevelDescriptor{}, false
}

// HasParent reports whether the level references an enclosing level.
func (d LevelDescriptor) HasParent() bool {
	return d.ParentColumn != ""
}

// HasChild reports whether a level below can reference this one.
func (d LevelDescriptor) HasChild() bool {
	return d.ChildLevel != ""
}

// HierarchyNode is one row at any static-field level.
type HierarchyNode struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	ParentID    *int64    `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HierarchyNodeDetail augments a node with every ancestor's name. Columns not
// applicable to the node's level stay NULL.
type HierarchyNodeDetail struct {
	HierarchyNode
	CategoryName    *string `db:"category_name" json:"category_name,omitempty"`
	SubcategoryName *string `db:"subcategory_name" json:"subcategory_name,omitempty"`
	LocationName    *string `db:"location_name" json:"location_name,omitempty"`
	CabinetName     *string `db:"cabinet_name" json:"cabinet_name,omitempty"`
	ShelfName       *string `db:"shelf_name" json:"shelf_name,omitempty"`
}
