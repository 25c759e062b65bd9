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

type placementStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	CategoryInUse(ctx context.Context, id int64) (bool, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListSubcategories(ctx context.Context, categoryID *int64) ([]models.Subcategory, error)
	FindSubcategory(ctx context.Context, id int64) (*models.Subcategory, error)
	CreateSubcategory(ctx context.Context, subcategory *models.Subcategory) error
	UpdateSubcategory(ctx context.Context, subcategory *models.Subcategory) error
	SubcategoryInUse(ctx context.Context, id int64) (bool, error)
	DeleteSubcategory(ctx context.Context, id int64) error
	ListPositions(ctx context.Context, subcategoryID *int64) ([]models.Position, error)
	CreatePosition(ctx context.Context, position *models.Position) error
	UpdatePosition(ctx context.Context, position *models.Position) error
	PositionInUse(ctx context.Context, id int64) (bool, error)
	DeletePosition(ctx context.Context, id int64) error
}

// PlacementService manages the 3-level archive placement family that archive
// records reference by id or name.
type PlacementService struct {
	repo      placementStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlacementService constructs the service.
func NewPlacementService(repo placementStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *PlacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PlacementService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// ListCategories returns every placement category.
func (s *PlacementService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// CreateCategory adds a category; names are unique case-insensitively.
func (s *PlacementService) CreateCategory(ctx context.Context, req dto.ReferenceNameRequest, actor *models.JWTClaims) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.checkCategoryName(ctx, name, 0); err != nil {
		return nil, err
	}

	category := &models.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "categories", category.ID)
	return category, nil
}

// UpdateCategory renames a category.
func (s *PlacementService) UpdateCategory(ctx context.Context, id int64, req dto.ReferenceNameRequest, actor *models.JWTClaims) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.checkCategoryName(ctx, name, id); err != nil {
		return nil, err
	}

	category := &models.Category{ID: id, Name: name}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, "categories", id)
	return category, nil
}

// DeleteCategory removes a category unless subcategories or archives still
// reference it.
func (s *PlacementService) DeleteCategory(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	inUse, err := s.repo.CategoryInUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category references")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrHasChildren, "category is still referenced")
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, "categories", id)
	return nil
}

// ListSubcategories returns subcategories, optionally scoped to one category.
func (s *PlacementService) ListSubcategories(ctx context.Context, categoryID *int64) ([]models.Subcategory, error) {
	subcategories, err := s.repo.ListSubcategories(ctx, categoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subcategories")
	}
	if subcategories == nil {
		subcategories = []models.Subcategory{}
	}
	return subcategories, nil
}

// CreateSubcategory adds a subcategory under an existing category.
func (s *PlacementService) CreateSubcategory(ctx context.Context, req dto.SubcategoryRequest, actor *models.JWTClaims) (*models.Subcategory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subcategory payload")
	}

	subcategory := &models.Subcategory{Name: strings.TrimSpace(req.Name), CategoryID: req.CategoryID}
	if err := s.repo.CreateSubcategory(ctx, subcategory); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subcategory")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "subcategories", subcategory.ID)
	return subcategory, nil
}

// UpdateSubcategory rewrites a subcategory.
func (s *PlacementService) UpdateSubcategory(ctx context.Context, id int64, req dto.SubcategoryRequest, actor *models.JWTClaims) (*models.Subcategory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subcategory payload")
	}

	subcategory := &models.Subcategory{ID: id, Name: strings.TrimSpace(req.Name), CategoryID: req.CategoryID}
	if err := s.repo.UpdateSubcategory(ctx, subcategory); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subcategory not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subcategory")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, "subcategories", id)
	return subcategory, nil
}

// DeleteSubcategory removes a subcategory unless still referenced.
func (s *PlacementService) DeleteSubcategory(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	inUse, err := s.repo.SubcategoryInUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subcategory references")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrHasChildren, "subcategory is still referenced")
	}
	if err := s.repo.DeleteSubcategory(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subcategory not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subcategory")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, "subcategories", id)
	return nil
}

// ListPositions returns positions, optionally scoped to one subcategory.
func (s *PlacementService) ListPositions(ctx context.Context, subcategoryID *int64) ([]models.Position, error) {
	positions, err := s.repo.ListPositions(ctx, subcategoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list positions")
	}
	if positions == nil {
		positions = []models.Position{}
	}
	return positions, nil
}

// CreatePosition adds a placement position.
func (s *PlacementService) CreatePosition(ctx context.Context, req dto.PositionRequest, actor *models.JWTClaims) (*models.Position, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid position payload")
	}
	if err := s.checkSubcategoryRef(ctx, req.SubcategoryID); err != nil {
		return nil, err
	}

	position := &models.Position{Name: strings.TrimSpace(req.Name), SubcategoryID: req.SubcategoryID}
	if err := s.repo.CreatePosition(ctx, position); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create position")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "positions", position.ID)
	return position, nil
}

// UpdatePosition rewrites a placement position.
func (s *PlacementService) UpdatePosition(ctx context.Context, id int64, req dto.PositionRequest, actor *models.JWTClaims) (*models.Position, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid position payload")
	}
	if err := s.checkSubcategoryRef(ctx, req.SubcategoryID); err != nil {
		return nil, err
	}

	position := &models.Position{ID: id, Name: strings.TrimSpace(req.Name), SubcategoryID: req.SubcategoryID}
	if err := s.repo.UpdatePosition(ctx, position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "position not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update position")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, "positions", id)
	return position, nil
}

// DeletePosition removes a placement position unless archives reference it.
func (s *PlacementService) DeletePosition(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	inUse, err := s.repo.PositionInUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check position references")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrHasChildren, "position is still referenced by archives")
	}
	if err := s.repo.DeletePosition(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "position not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete position")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, "positions", id)
	return nil
}

func (s *PlacementService) checkCategoryName(ctx context.Context, name string, excludeID int64) error {
	exists, err := s.repo.CategoryExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrValidation, "category name already exists")
	}
	return nil
}

func (s *PlacementService) checkSubcategoryRef(ctx context.Context, subcategoryID *int64) error {
	if subcategoryID == nil {
		return nil
	}
	if _, err := s.repo.FindSubcategory(ctx, *subcategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "subcategory does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subcategory")
	}
	return nil
}

func (s *PlacementService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resource string, id int64) {
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
		s.logger.Warn("failed to record placement audit log", zap.Error(err))
	}
}
