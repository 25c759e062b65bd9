package models

import "time"

// EducationLevel is a flat reference row (jenjang pendidikan).
type EducationLevel struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Faculty is a flat reference row.
type Faculty struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Program optionally references a faculty and an education level; the letter
// form filters programs by both.
type Program struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	FacultyID *int64    `db:"faculty_id" json:"faculty_id,omitempty"`
	LevelID   *int64    `db:"level_id" json:"level_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProgramFilter narrows program listings for dropdown population.
type ProgramFilter struct {
	FacultyID *int64
	LevelID   *int64
}
