package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
)

type hierarchyStore interface {
	List(ctx context.Context, desc models.LevelDescriptor) ([]models.HierarchyNodeDetail, error)
	ListByParent(ctx context.Context, desc models.LevelDescriptor, parentID int64) ([]models.HierarchyNodeDetail, error)
	FindByID(ctx context.Context, desc models.LevelDescriptor, id int64) (*models.HierarchyNode, error)
	ParentExists(ctx context.Context, desc models.LevelDescriptor, parentID int64) (bool, error)
	HasChildren(ctx context.Context, desc models.LevelDescriptor, id int64) (bool, error)
	Create(ctx context.Context, desc models.LevelDescriptor, node *models.HierarchyNode) error
	Update(ctx context.Context, desc models.LevelDescriptor, node *models.HierarchyNode) error
	Delete(ctx context.Context, desc models.LevelDescriptor, id int64) error
}

// HierarchyService applies the structural rules of the six static-field
// levels: non-root nodes need an existing parent, and a node with children
// cannot be deleted.
type HierarchyService struct {
	repo      hierarchyStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHierarchyService constructs the service.
func NewHierarchyService(repo hierarchyStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *HierarchyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HierarchyService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Descriptor resolves the level key from a URL segment.
func (s *HierarchyService) Descriptor(level string) (models.LevelDescriptor, error) {
	desc, ok := models.DescriptorFor(models.HierarchyLevel(level))
	if !ok {
		return models.LevelDescriptor{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown level %q", level))
	}
	return desc, nil
}

// List returns the level's nodes, optionally scoped to one parent.
func (s *HierarchyService) List(ctx context.Context, desc models.LevelDescriptor, parentID *int64) ([]models.HierarchyNodeDetail, error) {
	var nodes []models.HierarchyNodeDetail
	var err error
	if parentID != nil && desc.HasParent() {
		nodes, err = s.repo.ListByParent(ctx, desc, *parentID)
	} else {
		nodes, err = s.repo.List(ctx, desc)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list %s", desc.Level))
	}
	if nodes == nil {
		nodes = []models.HierarchyNodeDetail{}
	}
	return nodes, nil
}

// Get loads one node at the level.
func (s *HierarchyService) Get(ctx context.Context, desc models.LevelDescriptor, id int64) (*models.HierarchyNode, error) {
	node, err := s.repo.FindByID(ctx, desc, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", singular(desc.Level)))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load node")
	}
	return node, nil
}

// Create inserts a node after validating its parent reference.
func (s *HierarchyService) Create(ctx context.Context, desc models.LevelDescriptor, req dto.HierarchyNodeRequest, actor *models.JWTClaims) (*models.HierarchyNode, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid node payload")
	}
	if err := s.checkParent(ctx, desc, req.ParentID); err != nil {
		return nil, err
	}

	node := &models.HierarchyNode{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if err := s.repo.Create(ctx, desc, node); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to create %s", singular(desc.Level)))
	}

	s.recordAudit(ctx, actor, models.AuditActionCreate, desc, node.ID)
	return node, nil
}

// Update rewrites a node after validating the (possibly changed) parent.
func (s *HierarchyService) Update(ctx context.Context, desc models.LevelDescriptor, id int64, req dto.HierarchyNodeRequest, actor *models.JWTClaims) (*models.HierarchyNode, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid node payload")
	}

	existing, err := s.Get(ctx, desc, id)
	if err != nil {
		return nil, err
	}

	parentID := existing.ParentID
	if req.ParentID != nil {
		parentID = req.ParentID
	}
	if err := s.checkParent(ctx, desc, parentID); err != nil {
		return nil, err
	}

	node := &models.HierarchyNode{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ParentID:    parentID,
		CreatedAt:   existing.CreatedAt,
	}
	if err := s.repo.Update(ctx, desc, node); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", singular(desc.Level)))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to update %s", singular(desc.Level)))
	}

	s.recordAudit(ctx, actor, models.AuditActionUpdate, desc, id)
	return node, nil
}

// Delete removes a node unless rows at the next level still reference it.
func (s *HierarchyService) Delete(ctx context.Context, desc models.LevelDescriptor, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	hasChildren, err := s.repo.HasChildren(ctx, desc, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check children")
	}
	if hasChildren {
		return appErrors.Clone(appErrors.ErrHasChildren, fmt.Sprintf("%s still has entries below it", singular(desc.Level)))
	}

	if err := s.repo.Delete(ctx, desc, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", singular(desc.Level)))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to delete %s", singular(desc.Level)))
	}

	s.recordAudit(ctx, actor, models.AuditActionDelete, desc, id)
	return nil
}

func (s *HierarchyService) checkParent(ctx context.Context, desc models.LevelDescriptor, parentID *int64) error {
	if !desc.HasParent() {
		return nil
	}
	if parentID == nil {
		return appErrors.Clone(appErrors.ErrValidation, "parent_id is required at this level")
	}
	exists, err := s.repo.ParentExists(ctx, desc, *parentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check parent")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrValidation, "parent does not exist")
	}
	return nil
}

func (s *HierarchyService) recordAudit(ctx context.Context, actor *models.JWTClaims, action string, desc models.LevelDescriptor, id int64) {
	if s.audit == nil {
		return
	}
	resourceID := fmt.Sprintf("%d", id)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "static_" + string(desc.Level),
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record hierarchy audit log", zap.Error(err))
	}
}

func singular(level models.HierarchyLevel) string {
	name := string(level)
	switch {
	case strings.HasSuffix(name, "ies"):
		return strings.TrimSuffix(name, "ies") + "y"
	case name == "shelves":
		return "shelf"
	case strings.HasSuffix(name, "s"):
		return strings.TrimSuffix(name, "s")
	}
	return name
}
