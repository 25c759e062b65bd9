package dto

// HierarchyNodeRequest creates or updates a static-field node. ParentID is
// required for every level except the root.
type HierarchyNodeRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
}
