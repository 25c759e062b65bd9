package dto

// CreateArchiveRequest contains metadata submitted alongside an optional
// image upload. Category and subcategory may arrive as ids or as names;
// unknown names are created on the fly.
type CreateArchiveRequest struct {
	Title         string  `form:"title" json:"title" validate:"required"`
	Description   *string `form:"description" json:"description"`
	CategoryID    *int64  `form:"category_id" json:"category_id"`
	Category      string  `form:"category" json:"category"`
	SubcategoryID *int64  `form:"subcategory_id" json:"subcategory_id"`
	Subcategory   string  `form:"subcategory" json:"subcategory"`
	PositionID    *int64  `form:"position_id" json:"position_id"`
	ArchiveDate   string  `form:"date" json:"date"`
	Location      *string `form:"location" json:"location"`
}

// SubcategoryRequest creates or updates a placement subcategory.
type SubcategoryRequest struct {
	Name       string `json:"name" validate:"required"`
	CategoryID int64  `json:"category_id" validate:"required"`
}

// PositionRequest creates or updates a placement position.
type PositionRequest struct {
	Name          string `json:"name" validate:"required"`
	SubcategoryID *int64 `json:"subcategory_id"`
}

// UpdateArchiveRequest mirrors the create payload with every field optional;
// omitted fields keep their stored values.
type UpdateArchiveRequest struct {
	Title         *string `form:"title" json:"title"`
	Description   *string `form:"description" json:"description"`
	CategoryID    *int64  `form:"category_id" json:"category_id"`
	Category      string  `form:"category" json:"category"`
	SubcategoryID *int64  `form:"subcategory_id" json:"subcategory_id"`
	Subcategory   string  `form:"subcategory" json:"subcategory"`
	PositionID    *int64  `form:"position_id" json:"position_id"`
	ArchiveDate   *string `form:"date" json:"date"`
	Location      *string `form:"location" json:"location"`
	RemoveImage   bool    `form:"remove_image" json:"remove_image"`
}
