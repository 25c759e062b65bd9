package dto

// ReferenceNameRequest covers the flat lookup tables (levels, faculties).
type ReferenceNameRequest struct {
	Name string `json:"name" validate:"required"`
}

// ProgramRequest creates or updates a study program.
type ProgramRequest struct {
	Name      string `json:"name" validate:"required"`
	FacultyID *int64 `json:"faculty_id"`
	LevelID   *int64 `json:"level_id"`
}
