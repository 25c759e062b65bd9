package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives pagination metadata from a result count.
func NewPagination(total, page, limit int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}
