package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
)

type educationStore interface {
	ListLevels(ctx context.Context) ([]models.EducationLevel, error)
	CreateLevel(ctx context.Context, level *models.EducationLevel) error
	UpdateLevel(ctx context.Context, level *models.EducationLevel) error
	LevelInUse(ctx context.Context, id int64) (bool, error)
	DeleteLevel(ctx context.Context, id int64) error
	ListFaculties(ctx context.Context) ([]models.Faculty, error)
	CreateFaculty(ctx context.Context, faculty *models.Faculty) error
	UpdateFaculty(ctx context.Context, faculty *models.Faculty) error
	FacultyInUse(ctx context.Context, id int64) (bool, error)
	DeleteFaculty(ctx context.Context, id int64) error
	ListPrograms(ctx context.Context, filter models.ProgramFilter) ([]models.Program, error)
	CreateProgram(ctx context.Context, program *models.Program) error
	UpdateProgram(ctx context.Context, program *models.Program) error
	DeleteProgram(ctx context.Context, id int64) error
	FacultyExists(ctx context.Context, id int64) (bool, error)
	LevelExists(ctx context.Context, id int64) (bool, error)
}

// EducationService manages the education reference tables used by letter
// forms: jenjang pendidikan, fakultas and program studi.
type EducationService struct {
	repo      educationStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEducationService constructs the service.
func NewEducationService(repo educationStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *EducationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EducationService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// ListLevels returns every education level.
func (s *EducationService) ListLevels(ctx context.Context) ([]models.EducationLevel, error) {
	levels, err := s.repo.ListLevels(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list education levels")
	}
	if levels == nil {
		levels = []models.EducationLevel{}
	}
	return levels, nil
}

// CreateLevel adds an education level.
func (s *EducationService) CreateLevel(ctx context.Context, req dto.ReferenceNameRequest, actor *models.JWTClaims) (*models.EducationLevel, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid level payload")
	}

	level := &models.EducationLevel{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateLevel(ctx, level); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create education level")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "education_levels", level.ID)
	return level, nil
}

// UpdateLevel renames an education level.
func (s *EducationService) UpdateLevel(ctx context.Context, id int64, req dto.ReferenceNameRequest, actor *models.JWTClaims) (*models.EducationLevel, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid level payload")
	}

	level := &models.EducationLevel{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.UpdateLevel(ctx, level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "education level not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update education level")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, "education_levels", id)
	return level, nil
}

// DeleteLevel removes an education level unless programs still reference it.
func (s *EducationService) DeleteLevel(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	inUse, err := s.repo.LevelInUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check level references")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrHasChildren, "education level is referenced by programs")
	}
	if err := s.repo.DeleteLevel(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "education level not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete education level")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, "education_levels", id)
	return nil
}

// ListFaculties returns every faculty.
func (s *EducationService) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	faculties, err := s.repo.ListFaculties(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculties")
	}
	if faculties == nil {
		faculties = []models.Faculty{}
	}
	return faculties, nil
}

// CreateFaculty adds a faculty.
func (s *EducationService) CreateFaculty(ctx context.Context, req dto.ReferenceNameRequest, actor *models.JWTClaims) (*models.Faculty, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}

	faculty := &models.Faculty{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateFaculty(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "faculties", faculty.ID)
	return faculty, nil
}

// UpdateFaculty renames a faculty.
func (s *EducationService) UpdateFaculty(ctx context.Context, id int64, req dto.ReferenceNameRequest, actor *models.JWTClaims) (*models.Faculty, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}

	faculty := &models.Faculty{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.UpdateFaculty(ctx, faculty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, "faculties", id)
	return faculty, nil
}

// DeleteFaculty removes a faculty unless programs still reference it.
func (s *EducationService) DeleteFaculty(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	inUse, err := s.repo.FacultyInUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty references")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrHasChildren, "faculty is referenced by programs")
	}
	if err := s.repo.DeleteFaculty(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, "faculties", id)
	return nil
}

// ListPrograms returns study programs, filtered by faculty and level when
// either is supplied.
func (s *EducationService) ListPrograms(ctx context.Context, filter models.ProgramFilter) ([]models.Program, error) {
	programs, err := s.repo.ListPrograms(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	if programs == nil {
		programs = []models.Program{}
	}
	return programs, nil
}

// CreateProgram adds a study program after checking its references.
func (s *EducationService) CreateProgram(ctx context.Context, req dto.ProgramRequest, actor *models.JWTClaims) (*models.Program, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	if err := s.checkProgramRefs(ctx, req); err != nil {
		return nil, err
	}

	program := &models.Program{Name: strings.TrimSpace(req.Name), FacultyID: req.FacultyID, LevelID: req.LevelID}
	if err := s.repo.CreateProgram(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "programs", program.ID)
	return program, nil
}

// UpdateProgram rewrites a study program.
func (s *EducationService) UpdateProgram(ctx context.Context, id int64, req dto.ProgramRequest, actor *models.JWTClaims) (*models.Program, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	if err := s.checkProgramRefs(ctx, req); err != nil {
		return nil, err
	}

	program := &models.Program{ID: id, Name: strings.TrimSpace(req.Name), FacultyID: req.FacultyID, LevelID: req.LevelID}
	if err := s.repo.UpdateProgram(ctx, program); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, "programs", id)
	return program, nil
}

// DeleteProgram removes a study program.
func (s *EducationService) DeleteProgram(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteProgram(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete program")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, "programs", id)
	return nil
}

func (s *EducationService) checkProgramRefs(ctx context.Context, req dto.ProgramRequest) error {
	if req.FacultyID != nil {
		exists, err := s.repo.FacultyExists(ctx, *req.FacultyID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty")
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrValidation, "faculty does not exist")
		}
	}
	if req.LevelID != nil {
		exists, err := s.repo.LevelExists(ctx, *req.LevelID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check education level")
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrValidation, "education level does not exist")
		}
	}
	return nil
}

func (s *EducationService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resource string, id int64) {
	if s.audit == nil {
		return
	}
	resourceID := strconv.FormatInt(id, 10)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record reference audit log", zap.Error(err))
	}
}
