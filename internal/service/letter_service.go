package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	"github.com/noah-isme/arsip-biak-api/pkg/dateutil"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/export"
	"github.com/noah-isme/arsip-biak-api/pkg/jobs"
)

type letterStore interface {
	List(ctx context.Context, filter models.LetterFilter) ([]models.Letter, int, error)
	FindByID(ctx context.Context, id int64) (*models.LetterWithDetails, error)
	Create(ctx context.Context, letter *models.Letter, details *models.LetterDetails) error
	Update(ctx context.Context, letter *models.Letter, details *models.LetterDetails) error
	AppendStatus(ctx context.Context, letterID int64, status string, note *string) (*models.LetterStatusHistory, error)
	History(ctx context.Context, letterID int64) ([]models.LetterStatusHistory, error)
	UpdateHistoryItem(ctx context.Context, letterID, historyID int64, status string, note *string) error
	DeleteHistoryItem(ctx context.Context, letterID, historyID int64) error
	Delete(ctx context.Context, id int64) error
	Rekap(ctx context.Context, start, end time.Time, groupBy models.RekapGroupBy) ([]models.RekapRow, error)
}

type rekapCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

type downloadSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string) (resourceID, relPath string, expiresAt time.Time, err error)
}

const rekapCachePrefix = "rekap:letters:"

// LetterServiceConfig tunes caching and uploads for the tracker.
type LetterServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	CacheTTL     time.Duration
}

// LetterDownload bundles an opened attachment for streaming.
type LetterDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// LetterService implements the BIAK letter tracker: letters with typed
// detail rows, an editable status trail and cached rekap aggregates.
type LetterService struct {
	repo      letterStore
	cache     rekapCache
	storage   fileStorage
	opener    LetterOpener
	signer    downloadSigner
	cleanup   cleanupQueue
	audit     auditLogger
	metrics   cacheMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LetterServiceConfig
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	mimeSet   map[string]struct{}
}

// LetterOpener opens stored attachments for download streaming.
type LetterOpener interface {
	Open(filename string) (*os.File, error)
}

// NewLetterService constructs the service with defaults.
func NewLetterService(repo letterStore, cache rekapCache, storage fileStorage, opener LetterOpener, signer downloadSigner, cleanup cleanupQueue, audit auditLogger, metrics cacheMetrics, validate *validator.Validate, logger *zap.Logger, cfg LetterServiceConfig) *LetterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &LetterService{
		repo:      repo,
		cache:     cache,
		storage:   storage,
		opener:    opener,
		signer:    signer,
		cleanup:   cleanup,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		mimeSet:   mimeSet,
	}
}

// List returns letters matching the filter with pagination metadata. Date
// bounds arrive as strings in any accepted format.
func (s *LetterService) List(ctx context.Context, filter models.LetterFilter, startDate, endDate string) ([]models.Letter, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.LetterType != "" && !filter.LetterType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown letter type")
	}

	if startDate != "" {
		ts, err := dateutil.NormalizeTime(startDate)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid start date")
		}
		filter.StartDate = &ts
	}
	if endDate != "" {
		ts, err := dateutil.NormalizeTime(endDate)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid end date")
		}
		filter.EndDate = &ts
	}

	letters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list letters")
	}
	if letters == nil {
		letters = []models.Letter{}
	}
	return letters, models.NewPagination(total, filter.Page, filter.Limit), nil
}

// Get loads one letter together with its detail block.
func (s *LetterService) Get(ctx context.Context, id int64) (*models.LetterWithDetails, error) {
	letter, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "letter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load letter")
	}
	return letter, nil
}

// Create registers a new letter. Non-plain types must carry a details block.
func (s *LetterService) Create(ctx context.Context, req dto.CreateLetterRequest, file *FileUpload, actor *models.JWTClaims) (*models.LetterWithDetails, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid letter payload")
	}

	letterType := models.LetterType(req.LetterType)
	if !letterType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown letter type")
	}

	letterDate, err := dateutil.NormalizeTime(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid letter date")
	}

	details, err := s.buildDetails(letterType, req.Details, req.DetailsJSON)
	if err != nil {
		return nil, err
	}

	letter := &models.Letter{
		Name:       strings.TrimSpace(req.Name),
		LetterDate: letterDate,
		Sender:     strings.TrimSpace(req.Sender),
		Recipient:  strings.TrimSpace(req.Recipient),
		Subject:    strings.TrimSpace(req.Subject),
		LetterType: letterType,
		CreatedBy:  &actor.UserID,
	}
	if req.Status != nil && *req.Status != "" {
		letter.CurrentStatus = req.Status
	}

	if file != nil {
		rel, err := s.saveAttachment(file)
		if err != nil {
			return nil, err
		}
		letter.FilePath = &rel
	}

	if err := s.repo.Create(ctx, letter, details); err != nil {
		s.discardAttachment(letter.FilePath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create letter")
	}

	s.invalidateRekap(ctx)
	s.recordAudit(ctx, actor, models.AuditActionCreate, letter.ID)
	return s.Get(ctx, letter.ID)
}

// Update applies a partial update. Switching to the plain type drops any
// stored details row; switching away requires a details block.
func (s *LetterService) Update(ctx context.Context, id int64, req dto.UpdateLetterRequest, file *FileUpload, actor *models.JWTClaims) (*models.LetterWithDetails, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	letter := existing.Letter
	oldFile := letter.FilePath

	if req.Name != nil {
		letter.Name = strings.TrimSpace(*req.Name)
	}
	if req.Sender != nil {
		letter.Sender = strings.TrimSpace(*req.Sender)
	}
	if req.Recipient != nil {
		letter.Recipient = strings.TrimSpace(*req.Recipient)
	}
	if req.Subject != nil {
		letter.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Date != nil {
		ts, err := dateutil.NormalizeTime(*req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid letter date")
		}
		letter.LetterDate = ts
	}
	if req.LetterType != nil {
		letterType := models.LetterType(*req.LetterType)
		if !letterType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown letter type")
		}
		letter.LetterType = letterType
	}
	if letter.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	payload := req.Details
	if payload == nil && existing.Details != nil {
		payload = detailsPayloadFromModel(existing.Details)
	}
	details, err := s.buildDetails(letter.LetterType, payload, req.DetailsJSON)
	if err != nil {
		return nil, err
	}

	replaced := false
	if file != nil {
		rel, err := s.saveAttachment(file)
		if err != nil {
			return nil, err
		}
		letter.FilePath = &rel
		replaced = true
	} else if req.RemoveFile {
		letter.FilePath = nil
		replaced = true
	}

	if err := s.repo.Update(ctx, &letter, details); err != nil {
		if file != nil {
			s.discardAttachment(letter.FilePath)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "letter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update letter")
	}

	if replaced && oldFile != nil {
		s.discardAttachment(oldFile)
	}

	s.invalidateRekap(ctx)
	s.recordAudit(ctx, actor, models.AuditActionUpdate, id)
	return s.Get(ctx, id)
}

// UpdateStatus appends a status-history entry and refreshes the cached
// current status. Any non-empty status string is accepted.
func (s *LetterService) UpdateStatus(ctx context.Context, id int64, req dto.UpdateLetterStatusRequest, actor *models.JWTClaims) (*models.LetterStatusHistory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	entry, err := s.repo.AppendStatus(ctx, id, strings.TrimSpace(req.Status), req.Note)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append status")
	}

	s.recordAudit(ctx, actor, models.AuditActionUpdate, id)
	return entry, nil
}

// History returns a letter's full status trail, oldest first.
func (s *LetterService) History(ctx context.Context, id int64) ([]models.LetterStatusHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	if history == nil {
		history = []models.LetterStatusHistory{}
	}
	return history, nil
}

// UpdateHistoryItem edits one recorded history entry.
func (s *LetterService) UpdateHistoryItem(ctx context.Context, letterID, historyID int64, req dto.UpdateHistoryItemRequest, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history payload")
	}
	if _, err := s.Get(ctx, letterID); err != nil {
		return err
	}

	if err := s.repo.UpdateHistoryItem(ctx, letterID, historyID, strings.TrimSpace(req.Status), req.Note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "history entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update history entry")
	}

	s.recordAudit(ctx, actor, models.AuditActionUpdate, letterID)
	return nil
}

// DeleteHistoryItem removes one history entry.
func (s *LetterService) DeleteHistoryItem(ctx context.Context, letterID, historyID int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.Get(ctx, letterID); err != nil {
		return err
	}

	if err := s.repo.DeleteHistoryItem(ctx, letterID, historyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "history entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete history entry")
	}

	s.recordAudit(ctx, actor, models.AuditActionDelete, letterID)
	return nil
}

// Delete removes the letter together with its details, history and file.
func (s *LetterService) Delete(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "letter not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete letter")
	}

	s.discardAttachment(existing.FilePath)
	s.invalidateRekap(ctx)
	s.recordAudit(ctx, actor, models.AuditActionDelete, id)
	return nil
}

// Rekap aggregates letter counts per period, serving repeated queries from
// Redis until a letter write invalidates them.
func (s *LetterService) Rekap(ctx context.Context, q dto.RekapQuery) ([]models.RekapRow, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rekap query")
	}

	start, err := dateutil.NormalizeTime(q.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid start date")
	}
	end, err := dateutil.NormalizeTime(q.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid end date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	groupBy := models.RekapGroupBy(q.GroupBy)
	if q.GroupBy == "" {
		groupBy = models.RekapByDay
	}
	if !groupBy.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown grouping")
	}

	key := fmt.Sprintf("%s%s:%s:%s", rekapCachePrefix, start.Format(dateutil.Canonical), end.Format(dateutil.Canonical), groupBy)
	var rows []models.RekapRow
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &rows); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return rows, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("rekap cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	rows, err = s.repo.Rekap(ctx, start, end, groupBy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate letters")
	}
	if rows == nil {
		rows = []models.RekapRow{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rows, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("rekap cache write failed", zap.Error(err))
		}
	}
	return rows, nil
}

// ExportRekap renders the aggregate as CSV or PDF for download.
func (s *LetterService) ExportRekap(ctx context.Context, q dto.RekapQuery, format string) ([]byte, string, string, error) {
	rows, err := s.Rekap(ctx, q)
	if err != nil {
		return nil, "", "", err
	}

	data := export.Dataset{Headers: []string{"Periode", "Total"}}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Periode": row.Period,
			"Total":   strconv.Itoa(row.Total),
		})
	}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", "rekap-surat.csv", nil
	case "pdf":
		payload, err := s.pdf.Render(data, "Rekap Surat BIAK")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", "rekap-surat.pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// FileToken issues a signed, short-lived download token for the attachment.
func (s *LetterService) FileToken(ctx context.Context, id int64) (string, time.Time, error) {
	letter, err := s.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if letter.FilePath == nil || *letter.FilePath == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "letter has no attachment")
	}
	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(id, 10), *letter.FilePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return token, expiresAt, nil
}

// Download validates a signed token and opens the underlying file.
func (s *LetterService) Download(ctx context.Context, token string) (*LetterDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	file, err := s.opener.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment no longer exists")
	}
	return &LetterDownload{File: file, Filename: relPath, ExpiresAt: expiresAt}, nil
}

// buildDetails enforces the type/details rule: plain letters never store a
// details row, the other types must provide one.
func (s *LetterService) buildDetails(letterType models.LetterType, payload *dto.LetterDetailsPayload, rawJSON string) (*models.LetterDetails, error) {
	if payload == nil && rawJSON != "" {
		payload = &dto.LetterDetailsPayload{}
		if err := json.Unmarshal([]byte(rawJSON), payload); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "details is not valid JSON")
		}
	}

	if !letterType.RequiresDetails() {
		return nil, nil
	}
	if payload == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("details are required for %s letters", letterType))
	}

	details := &models.LetterDetails{
		NIM:               payload.NIM,
		Nama:              payload.Nama,
		JenjangPendidikan: payload.JenjangPendidikan,
		Fakultas:          payload.Fakultas,
		ProgramStudi:      payload.ProgramStudi,
		NoSeri:            payload.NoSeri,
		NIRL:              payload.NIRL,
		Telepon:           payload.Telepon,
	}
	if payload.TanggalLulus != nil && *payload.TanggalLulus != "" {
		normalized, err := dateutil.Normalize(*payload.TanggalLulus)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidDate, "invalid graduation date")
		}
		details.TanggalLulus = &normalized
	}
	return details, nil
}

func detailsPayloadFromModel(d *models.LetterDetails) *dto.LetterDetailsPayload {
	return &dto.LetterDetailsPayload{
		NIM:               d.NIM,
		Nama:              d.Nama,
		JenjangPendidikan: d.JenjangPendidikan,
		Fakultas:          d.Fakultas,
		ProgramStudi:      d.ProgramStudi,
		TanggalLulus:      d.TanggalLulus,
		NoSeri:            d.NoSeri,
		NIRL:              d.NIRL,
		Telepon:           d.Telepon,
	}
}

func (s *LetterService) saveAttachment(file *FileUpload) (string, error) {
	if file.Content == nil || file.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if file.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if _, ok := s.mimeSet[strings.ToLower(file.MimeType)]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported file type")
	}
	rel, err := s.storage.SaveUpload("letters", file.Filename, file.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	return rel, nil
}

func (s *LetterService) discardAttachment(relPath *string) {
	if relPath == nil || *relPath == "" || s.cleanup == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: "file_cleanup", Payload: *relPath}
	if err := s.cleanup.Enqueue(job); err != nil {
		s.logger.Warn("failed to queue file cleanup", zap.String("path", *relPath), zap.Error(err))
	}
}

func (s *LetterService) invalidateRekap(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, rekapCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate rekap cache", zap.Error(err))
	}
}

func (s *LetterService) recordAudit(ctx context.Context, actor *models.JWTClaims, action string, id int64) {
	if s.audit == nil {
		return
	}
	resourceID := strconv.FormatInt(id, 10)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "letters",
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record letter audit log", zap.Error(err))
	}
}
