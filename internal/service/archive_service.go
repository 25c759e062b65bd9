package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	"github.com/noah-isme/arsip-biak-api/pkg/dateutil"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/jobs"
)

type archiveStore interface {
	List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.ArchiveDetail, error)
	FindPosition(ctx context.Context, id int64) (*models.Position, error)
	Create(ctx context.Context, archive *models.Archive, categoryName, subcategoryName string) error
	Update(ctx context.Context, archive *models.Archive, categoryName, subcategoryName string) error
	Delete(ctx context.Context, id int64) error
}

type fileStorage interface {
	SaveUpload(prefix, originalName string, r io.Reader) (string, error)
}

type cleanupQueue interface {
	Enqueue(job jobs.Job) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// FileUpload carries upload metadata and the content stream.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// ArchiveServiceConfig holds validation parameters for archive uploads.
type ArchiveServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	PublicPath   string
}

// ArchiveService manages the archive catalog: metadata, placement resolution
// and the optional scanned image per record.
type ArchiveService struct {
	repo      archiveStore
	storage   fileStorage
	cleanup   cleanupQueue
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ArchiveServiceConfig
	mimeSet   map[string]struct{}
}

// NewArchiveService constructs the service with defaults.
func NewArchiveService(repo archiveStore, storage fileStorage, cleanup cleanupQueue, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg ArchiveServiceConfig) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/webp"}
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/uploads"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &ArchiveService{
		repo:      repo,
		storage:   storage,
		cleanup:   cleanup,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		mimeSet:   mimeSet,
	}
}

// List returns archives matching the filter with pagination metadata.
func (s *ArchiveService) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	archives, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archives")
	}
	if archives == nil {
		archives = []models.ArchiveDetail{}
	}
	return archives, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Get loads one archive with placement names.
func (s *ArchiveService) Get(ctx context.Context, id int64) (*models.ArchiveDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archive not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load archive")
	}
	return detail, nil
}

// Create registers a new archive record with an optional scanned image.
func (s *ArchiveService) Create(ctx context.Context, req dto.CreateArchiveRequest, image *FileUpload, actor *models.JWTClaims) (*models.ArchiveDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive payload")
	}

	archive := &models.Archive{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		PositionID:    req.PositionID,
		Location:      req.Location,
		CreatedBy:     &actor.UserID,
	}

	if req.ArchiveDate != "" {
		ts, err := dateutil.NormalizeTime(req.ArchiveDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid archive date")
		}
		archive.ArchiveDate = &ts
	}

	if err := s.resolvePosition(ctx, archive); err != nil {
		return nil, err
	}

	if image != nil {
		rel, err := s.saveImage(image)
		if err != nil {
			return nil, err
		}
		archive.ImagePath = &rel
	}

	if err := s.repo.Create(ctx, archive, strings.TrimSpace(req.Category), strings.TrimSpace(req.Subcategory)); err != nil {
		s.discardImage(archive.ImagePath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create archive")
	}

	s.recordAudit(ctx, actor, models.AuditActionCreate, archive.ID)
	return s.Get(ctx, archive.ID)
}

// Update applies a partial update to an archive record.
func (s *ArchiveService) Update(ctx context.Context, id int64, req dto.UpdateArchiveRequest, image *FileUpload, actor *models.JWTClaims) (*models.ArchiveDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	archive := existing.Archive
	oldImage := archive.ImagePath

	if req.Title != nil {
		archive.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		archive.Description = req.Description
	}
	if req.CategoryID != nil {
		archive.CategoryID = req.CategoryID
		archive.SubcategoryID = nil
	}
	if req.Category != "" {
		archive.CategoryID = nil
		archive.SubcategoryID = nil
	}
	if req.SubcategoryID != nil {
		archive.SubcategoryID = req.SubcategoryID
	}
	if req.Subcategory != "" {
		archive.SubcategoryID = nil
	}
	if req.PositionID != nil {
		archive.PositionID = req.PositionID
	}
	if req.Location != nil {
		archive.Location = req.Location
	}
	if req.ArchiveDate != nil {
		if *req.ArchiveDate == "" {
			archive.ArchiveDate = nil
		} else {
			ts, err := dateutil.NormalizeTime(*req.ArchiveDate)
			if err != nil {
				return nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid archive date")
			}
			archive.ArchiveDate = &ts
		}
	}
	if archive.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}

	if err := s.resolvePosition(ctx, &archive); err != nil {
		return nil, err
	}

	replaced := false
	if image != nil {
		rel, err := s.saveImage(image)
		if err != nil {
			return nil, err
		}
		archive.ImagePath = &rel
		replaced = true
	} else if req.RemoveImage {
		archive.ImagePath = nil
		replaced = true
	}

	if err := s.repo.Update(ctx, &archive, strings.TrimSpace(req.Category), strings.TrimSpace(req.Subcategory)); err != nil {
		if image != nil {
			s.discardImage(archive.ImagePath)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archive not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update archive")
	}

	if replaced && oldImage != nil {
		s.discardImage(oldImage)
	}

	s.recordAudit(ctx, actor, models.AuditActionUpdate, archive.ID)
	return s.Get(ctx, archive.ID)
}

// Delete removes a record and queues its image for cleanup.
func (s *ArchiveService) Delete(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "archive not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete archive")
	}

	s.discardImage(existing.ImagePath)
	s.recordAudit(ctx, actor, models.AuditActionDelete, id)
	return nil
}

// ImageURL maps a stored relative image path onto its public URL.
func (s *ArchiveService) ImageURL(relPath *string) *string {
	if relPath == nil || *relPath == "" {
		return nil
	}
	url := strings.TrimRight(s.cfg.PublicPath, "/") + "/" + strings.TrimLeft(*relPath, "/")
	return &url
}

// resolvePosition verifies a referenced position. An unknown position is a
// validation error; a position attached to a different subcategory is
// silently dropped so the record still saves with the rest of its placement.
func (s *ArchiveService) resolvePosition(ctx context.Context, archive *models.Archive) error {
	if archive.PositionID == nil {
		return nil
	}
	position, err := s.repo.FindPosition(ctx, *archive.PositionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "position does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve position")
	}
	if position.SubcategoryID != nil && archive.SubcategoryID != nil && *position.SubcategoryID != *archive.SubcategoryID {
		s.logger.Warn("position belongs to another subcategory, dropping",
			zap.Int64("position_id", *archive.PositionID),
			zap.Int64("subcategory_id", *archive.SubcategoryID))
		archive.PositionID = nil
	}
	return nil
}

func (s *ArchiveService) saveImage(image *FileUpload) (string, error) {
	if image.Content == nil || image.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "image file is empty")
	}
	if image.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if _, ok := s.mimeSet[strings.ToLower(image.MimeType)]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported image type")
	}
	rel, err := s.storage.SaveUpload("archives", image.Filename, image.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
	}
	return rel, nil
}

// discardImage queues a stored file for asynchronous removal.
func (s *ArchiveService) discardImage(relPath *string) {
	if relPath == nil || *relPath == "" || s.cleanup == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: "file_cleanup", Payload: *relPath}
	if err := s.cleanup.Enqueue(job); err != nil {
		s.logger.Warn("failed to queue file cleanup", zap.String("path", *relPath), zap.Error(err))
	}
}

func (s *ArchiveService) recordAudit(ctx context.Context, actor *models.JWTClaims, action string, id int64) {
	if s.audit == nil {
		return
	}
	resourceID := fmt.Sprintf("%d", id)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "archives",
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record archive audit log", zap.Error(err))
	}
}

// requireAdmin gates mutating operations; reads stay open to all callers.
func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	return nil
}

func wrapInternal(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
