package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/jobs"
)

type mockArchiveRepo struct {
	archives  map[int64]*models.ArchiveDetail
	positions map[int64]*models.Position
	created   *models.Archive
	updated   *models.Archive
	nextID    int64
	createErr error
}

func (m *mockArchiveRepo) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveDetail, int, error) {
	out := make([]models.ArchiveDetail, 0, len(m.archives))
	for _, a := range m.archives {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockArchiveRepo) FindByID(ctx context.Context, id int64) (*models.ArchiveDetail, error) {
	detail, ok := m.archives[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return detail, nil
}

func (m *mockArchiveRepo) FindPosition(ctx context.Context, id int64) (*models.Position, error) {
	pos, ok := m.positions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return pos, nil
}

func (m *mockArchiveRepo) Create(ctx context.Context, archive *models.Archive, categoryName, subcategoryName string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	archive.ID = m.nextID
	m.created = archive
	if m.archives == nil {
		m.archives = make(map[int64]*models.ArchiveDetail)
	}
	m.archives[archive.ID] = &models.ArchiveDetail{Archive: *archive}
	return nil
}

func (m *mockArchiveRepo) Update(ctx context.Context, archive *models.Archive, categoryName, subcategoryName string) error {
	if _, ok := m.archives[archive.ID]; !ok {
		return sql.ErrNoRows
	}
	m.updated = archive
	m.archives[archive.ID] = &models.ArchiveDetail{Archive: *archive}
	return nil
}

func (m *mockArchiveRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.archives[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.archives, id)
	return nil
}

type mockStorage struct {
	saved   []string
	saveErr error
}

func (m *mockStorage) SaveUpload(prefix, originalName string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	rel := prefix + "/" + originalName
	m.saved = append(m.saved, rel)
	return rel, nil
}

type mockQueue struct {
	jobs []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

type mockAudit struct {
	logs []*models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin, Email: "admin@biak.ac.id"}
}

func newArchiveService(repo *mockArchiveRepo, storage *mockStorage, queue *mockQueue, audit *mockAudit) *ArchiveService {
	return NewArchiveService(repo, storage, queue, audit, validator.New(), zap.NewNop(), ArchiveServiceConfig{})
}

func TestArchiveServiceCreate(t *testing.T) {
	repo := &mockArchiveRepo{}
	audit := &mockAudit{}
	svc := newArchiveService(repo, &mockStorage{}, &mockQueue{}, audit)

	catID := int64(3)
	detail, err := svc.Create(context.Background(), dto.CreateArchiveRequest{
		Title:       "Ijazah 2019",
		CategoryID:  &catID,
		ArchiveDate: "17-08-2019",
	}, nil, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Ijazah 2019", detail.Title)
	require.NotNil(t, repo.created.ArchiveDate)
	assert.Equal(t, "2019-08-17", repo.created.ArchiveDate.Format("2006-01-02"))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCreate, audit.logs[0].Action)
}

func TestArchiveServiceCreateRejectsNonAdmin(t *testing.T) {
	svc := newArchiveService(&mockArchiveRepo{}, &mockStorage{}, &mockQueue{}, &mockAudit{})

	_, err := svc.Create(context.Background(), dto.CreateArchiveRequest{Title: "Ijazah"}, nil, &models.JWTClaims{UserID: "u-2", Role: models.RoleStaff})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreateArchiveRequest{Title: "Ijazah"}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestArchiveServiceCreateInvalidDate(t *testing.T) {
	svc := newArchiveService(&mockArchiveRepo{}, &mockStorage{}, &mockQueue{}, &mockAudit{})

	_, err := svc.Create(context.Background(), dto.CreateArchiveRequest{Title: "Ijazah", ArchiveDate: "bukan-tanggal"}, nil, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, appErrors.FromError(err).Code)
}

func TestArchiveServiceCreateUnknownPosition(t *testing.T) {
	repo := &mockArchiveRepo{}
	svc := newArchiveService(repo, &mockStorage{}, &mockQueue{}, &mockAudit{})

	posID := int64(99)
	_, err := svc.Create(context.Background(), dto.CreateArchiveRequest{Title: "Ijazah", PositionID: &posID}, nil, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestArchiveServiceCreateDropsMismatchedPosition(t *testing.T) {
	subA, subB, posID := int64(1), int64(2), int64(7)
	repo := &mockArchiveRepo{positions: map[int64]*models.Position{
		posID: {ID: posID, Name: "Rak 7", SubcategoryID: &subB},
	}}
	svc := newArchiveService(repo, &mockStorage{}, &mockQueue{}, &mockAudit{})

	_, err := svc.Create(context.Background(), dto.CreateArchiveRequest{
		Title:         "Transkrip",
		SubcategoryID: &subA,
		PositionID:    &posID,
	}, nil, adminClaims())
	require.NoError(t, err)
	assert.Nil(t, repo.created.PositionID)
	assert.Equal(t, subA, *repo.created.SubcategoryID)
}

func TestArchiveServiceCreateWithImage(t *testing.T) {
	repo := &mockArchiveRepo{}
	storage := &mockStorage{}
	svc := newArchiveService(repo, storage, &mockQueue{}, &mockAudit{})

	image := &FileUpload{Filename: "scan.png", Size: 1024, MimeType: "image/png", Content: strings.NewReader("png")}
	_, err := svc.Create(context.Background(), dto.CreateArchiveRequest{Title: "Ijazah"}, image, adminClaims())
	require.NoError(t, err)
	require.Len(t, storage.saved, 1)
	assert.Equal(t, storage.saved[0], *repo.created.ImagePath)
}

func TestArchiveServiceCreateRejectsOversizedImage(t *testing.T) {
	svc := newArchiveService(&mockArchiveRepo{}, &mockStorage{}, &mockQueue{}, &mockAudit{})

	image := &FileUpload{Filename: "scan.png", Size: 50 * 1024 * 1024, MimeType: "image/png", Content: strings.NewReader("png")}
	_, err := svc.Create(context.Background(), dto.CreateArchiveRequest{Title: "Ijazah"}, image, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestArchiveServiceCreateRejectsUnsupportedMime(t *testing.T) {
	svc := newArchiveService(&mockArchiveRepo{}, &mockStorage{}, &mockQueue{}, &mockAudit{})

	image := &FileUpload{Filename: "doc.exe", Size: 10, MimeType: "application/octet-stream", Content: strings.NewReader("x")}
	_, err := svc.Create(context.Background(), dto.CreateArchiveRequest{Title: "Ijazah"}, image, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestArchiveServiceUpdateReplacesImage(t *testing.T) {
	oldPath := "archives/old.png"
	repo := &mockArchiveRepo{archives: map[int64]*models.ArchiveDetail{
		5: {Archive: models.Archive{ID: 5, Title: "Ijazah", ImagePath: &oldPath}},
	}}
	storage := &mockStorage{}
	queue := &mockQueue{}
	svc := newArchiveService(repo, storage, queue, &mockAudit{})

	image := &FileUpload{Filename: "new.png", Size: 128, MimeType: "image/png", Content: strings.NewReader("png")}
	detail, err := svc.Update(context.Background(), 5, dto.UpdateArchiveRequest{}, image, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "archives/new.png", *detail.ImagePath)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "file_cleanup", queue.jobs[0].Type)
	assert.Equal(t, oldPath, queue.jobs[0].Payload)
}

func TestArchiveServiceDeleteQueuesCleanup(t *testing.T) {
	path := "archives/scan.png"
	repo := &mockArchiveRepo{archives: map[int64]*models.ArchiveDetail{
		5: {Archive: models.Archive{ID: 5, Title: "Ijazah", ImagePath: &path}},
	}}
	queue := &mockQueue{}
	svc := newArchiveService(repo, &mockStorage{}, queue, &mockAudit{})

	require.NoError(t, svc.Delete(context.Background(), 5, adminClaims()))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, path, queue.jobs[0].Payload)
}

func TestArchiveServiceGetMissing(t *testing.T) {
	svc := newArchiveService(&mockArchiveRepo{}, &mockStorage{}, &mockQueue{}, &mockAudit{})

	_, err := svc.Get(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestArchiveServiceImageURL(t *testing.T) {
	svc := newArchiveService(&mockArchiveRepo{}, &mockStorage{}, &mockQueue{}, &mockAudit{})

	rel := "archives/scan.png"
	url := svc.ImageURL(&rel)
	require.NotNil(t, url)
	assert.Equal(t, "/uploads/archives/scan.png", *url)
	assert.Nil(t, svc.ImageURL(nil))
}
