package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/arsip-biak-api/internal/models"
)

// EducationRepository persists the education reference tables (jenjang,
// fakultas, program studi) used to populate letter forms.
type EducationRepository struct {
	db *sqlx.DB
}

// NewEducationRepository constructs the repository.
func NewEducationRepository(db *sqlx.DB) *EducationRepository {
	return &EducationRepository{db: db}
}

// ListLevels returns all education levels ordered by name.
func (r *EducationRepository) ListLevels(ctx context.Context) ([]models.EducationLevel, error) {
	var levels []models.EducationLevel
	if err := r.db.SelectContext(ctx, &levels, `SELECT id, name, created_at FROM education_levels ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list education levels: %w", err)
	}
	return levels, nil
}

// CreateLevel inserts an education level.
func (r *EducationRepository) CreateLevel(ctx context.Context, level *models.EducationLevel) error {
	level.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO education_levels (name, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, level.Name, level.CreatedAt).Scan(&level.ID); err != nil {
		return fmt.Errorf("create education level: %w", err)
	}
	return nil
}

// UpdateLevel renames an education level.
func (r *EducationRepository) UpdateLevel(ctx context.Context, level *models.EducationLevel) error {
	res, err := r.db.ExecContext(ctx, `UPDATE education_levels SET name = $2 WHERE id = $1`, level.ID, level.Name)
	if err != nil {
		return fmt.Errorf("update education level: %w", err)
	}
	return requireAffected(res, "education level")
}

// LevelInUse reports whether any program references the level.
func (r *EducationRepository) LevelInUse(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.db, `SELECT 1 FROM programs WHERE level_id = $1 LIMIT 1`, "education level references", id)
}

// DeleteLevel removes an education level.
func (r *EducationRepository) DeleteLevel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM education_levels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete education level: %w", err)
	}
	return requireAffected(res, "education level")
}

// ListFaculties returns all faculties ordered by name.
func (r *EducationRepository) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, `SELECT id, name, created_at FROM faculties ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, nil
}

// CreateFaculty inserts a faculty.
func (r *EducationRepository) CreateFaculty(ctx context.Context, faculty *models.Faculty) error {
	faculty.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO faculties (name, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, faculty.Name, faculty.CreatedAt).Scan(&faculty.ID); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// UpdateFaculty renames a faculty.
func (r *EducationRepository) UpdateFaculty(ctx context.Context, faculty *models.Faculty) error {
	res, err := r.db.ExecContext(ctx, `UPDATE faculties SET name = $2 WHERE id = $1`, faculty.ID, faculty.Name)
	if err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return requireAffected(res, "faculty")
}

// FacultyInUse reports whether any program references the faculty.
func (r *EducationRepository) FacultyInUse(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.db, `SELECT 1 FROM programs WHERE faculty_id = $1 LIMIT 1`, "faculty references", id)
}

// DeleteFaculty removes a faculty.
func (r *EducationRepository) DeleteFaculty(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM faculties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete faculty: %w", err)
	}
	return requireAffected(res, "faculty")
}

// ListPrograms returns programs matching the filter, ordered by name.
func (r *EducationRepository) ListPrograms(ctx context.Context, filter models.ProgramFilter) ([]models.Program, error) {
	query := `SELECT id, name, faculty_id, level_id, created_at FROM programs`
	var conditions []string
	var args []interface{}
	if filter.FacultyID != nil {
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)+1))
		args = append(args, *filter.FacultyID)
	}
	if filter.LevelID != nil {
		conditions = append(conditions, fmt.Sprintf("level_id = $%d", len(args)+1))
		args = append(args, *filter.LevelID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		for _, c := range conditions[1:] {
			query += " AND " + c
		}
	}
	query += " ORDER BY name ASC"

	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// CreateProgram inserts a program.
func (r *EducationRepository) CreateProgram(ctx context.Context, program *models.Program) error {
	program.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO programs (name, faculty_id, level_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, program.Name, program.FacultyID, program.LevelID, program.CreatedAt).Scan(&program.ID); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// UpdateProgram rewrites a program row.
func (r *EducationRepository) UpdateProgram(ctx context.Context, program *models.Program) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE programs SET name = $2, faculty_id = $3, level_id = $4 WHERE id = $1`,
		program.ID, program.Name, program.FacultyID, program.LevelID)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return requireAffected(res, "program")
}

// DeleteProgram removes a program.
func (r *EducationRepository) DeleteProgram(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	return requireAffected(res, "program")
}

// FacultyExists reports whether the faculty id exists.
func (r *EducationRepository) FacultyExists(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.db, `SELECT 1 FROM faculties WHERE id = $1`, "faculty", id)
}

// LevelExists reports whether the education level id exists.
func (r *EducationRepository) LevelExists(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.db, `SELECT 1 FROM education_levels WHERE id = $1`, "education level", id)
}
