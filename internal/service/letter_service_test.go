package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
)

type mockLetterRepo struct {
	letters     map[int64]*models.LetterWithDetails
	history     map[int64][]models.LetterStatusHistory
	nextID      int64
	rekapRows   []models.RekapRow
	rekapCalls  int
	lastDetails *models.LetterDetails
	lastGroupBy models.RekapGroupBy
}

func (m *mockLetterRepo) List(ctx context.Context, filter models.LetterFilter) ([]models.Letter, int, error) {
	out := make([]models.Letter, 0, len(m.letters))
	for _, l := range m.letters {
		out = append(out, l.Letter)
	}
	return out, len(out), nil
}

func (m *mockLetterRepo) FindByID(ctx context.Context, id int64) (*models.LetterWithDetails, error) {
	letter, ok := m.letters[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return letter, nil
}

func (m *mockLetterRepo) Create(ctx context.Context, letter *models.Letter, details *models.LetterDetails) error {
	m.nextID++
	letter.ID = m.nextID
	m.lastDetails = details
	if m.letters == nil {
		m.letters = make(map[int64]*models.LetterWithDetails)
	}
	m.letters[letter.ID] = &models.LetterWithDetails{Letter: *letter, Details: details}
	return nil
}

func (m *mockLetterRepo) Update(ctx context.Context, letter *models.Letter, details *models.LetterDetails) error {
	if _, ok := m.letters[letter.ID]; !ok {
		return sql.ErrNoRows
	}
	m.lastDetails = details
	m.letters[letter.ID] = &models.LetterWithDetails{Letter: *letter, Details: details}
	return nil
}

func (m *mockLetterRepo) AppendStatus(ctx context.Context, letterID int64, status string, note *string) (*models.LetterStatusHistory, error) {
	entry := models.LetterStatusHistory{ID: int64(len(m.history[letterID]) + 1), LetterID: letterID, Status: status, Note: note, CreatedAt: time.Now()}
	if m.history == nil {
		m.history = make(map[int64][]models.LetterStatusHistory)
	}
	m.history[letterID] = append(m.history[letterID], entry)
	if letter, ok := m.letters[letterID]; ok {
		letter.CurrentStatus = &entry.Status
	}
	return &entry, nil
}

func (m *mockLetterRepo) History(ctx context.Context, letterID int64) ([]models.LetterStatusHistory, error) {
	return m.history[letterID], nil
}

func (m *mockLetterRepo) UpdateHistoryItem(ctx context.Context, letterID, historyID int64, status string, note *string) error {
	for i, entry := range m.history[letterID] {
		if entry.ID == historyID {
			m.history[letterID][i].Status = status
			m.history[letterID][i].Note = note
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockLetterRepo) DeleteHistoryItem(ctx context.Context, letterID, historyID int64) error {
	for i, entry := range m.history[letterID] {
		if entry.ID == historyID {
			m.history[letterID] = append(m.history[letterID][:i], m.history[letterID][i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockLetterRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.letters[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.letters, id)
	delete(m.history, id)
	return nil
}

func (m *mockLetterRepo) Rekap(ctx context.Context, start, end time.Time, groupBy models.RekapGroupBy) ([]models.RekapRow, error) {
	m.rekapCalls++
	m.lastGroupBy = groupBy
	return m.rekapRows, nil
}

type memoryCache struct {
	entries map[string][]byte
	deletes []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	for key := range m.entries {
		if strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
			delete(m.entries, key)
		}
	}
	return nil
}

type mockSigner struct {
	token   string
	relPath string
	err     error
}

func (m *mockSigner) Generate(resourceID, relPath string) (string, time.Time, error) {
	m.relPath = relPath
	return m.token, time.Now().Add(5 * time.Minute), nil
}

func (m *mockSigner) Parse(token string) (string, string, time.Time, error) {
	if m.err != nil {
		return "", "", time.Time{}, m.err
	}
	if token != m.token {
		return "", "", time.Time{}, errors.New("token mismatch")
	}
	return "1", m.relPath, time.Now().Add(5 * time.Minute), nil
}

type mockOpener struct{ err error }

func (m *mockOpener) Open(filename string) (*os.File, error) {
	if m.err != nil {
		return nil, m.err
	}
	return os.Open(os.DevNull)
}

type countingMetrics struct {
	hits   int
	misses int
}

func (m *countingMetrics) RecordCacheOperation(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

type letterFixture struct {
	repo    *mockLetterRepo
	cache   *memoryCache
	storage *mockStorage
	queue   *mockQueue
	signer  *mockSigner
	metrics *countingMetrics
	svc     *LetterService
}

func newLetterFixture() *letterFixture {
	f := &letterFixture{
		repo:    &mockLetterRepo{},
		cache:   &memoryCache{},
		storage: &mockStorage{},
		queue:   &mockQueue{},
		signer:  &mockSigner{token: "signed-token"},
		metrics: &countingMetrics{},
	}
	f.svc = NewLetterService(f.repo, f.cache, f.storage, &mockOpener{}, f.signer, f.queue, &mockAudit{}, f.metrics, validator.New(), zap.NewNop(), LetterServiceConfig{})
	return f
}

func strPtr(s string) *string { return &s }

func validLetterRequest(letterType string) dto.CreateLetterRequest {
	return dto.CreateLetterRequest{
		Name:       "Surat Keterangan Lulus",
		Date:       "2024-03-01",
		Sender:     "BIAK",
		Recipient:  "Fakultas Teknik",
		Subject:    "Keterangan lulus a.n. Budi",
		LetterType: letterType,
	}
}

func TestLetterServiceCreatePlain(t *testing.T) {
	f := newLetterFixture()

	letter, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), nil, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.LetterTypeBiasa, letter.LetterType)
	assert.Nil(t, f.repo.lastDetails)
}

func TestLetterServiceCreateTypedRequiresDetails(t *testing.T) {
	f := newLetterFixture()

	_, err := f.svc.Create(context.Background(), validLetterRequest("pengganti_ijazah"), nil, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceCreateTypedWithDetails(t *testing.T) {
	f := newLetterFixture()

	req := validLetterRequest("pengganti_ijazah")
	req.Details = &dto.LetterDetailsPayload{
		NIM:          strPtr("1901234"),
		Nama:         strPtr("Budi Santoso"),
		TanggalLulus: strPtr("15-07-2023"),
	}
	letter, err := f.svc.Create(context.Background(), req, nil, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, letter.Details)
	assert.Equal(t, "1901234", *letter.Details.NIM)
	assert.Equal(t, "2023-07-15", *letter.Details.TanggalLulus)
}

func TestLetterServiceCreateParsesDetailsJSON(t *testing.T) {
	f := newLetterFixture()

	req := validLetterRequest("keterangan")
	req.DetailsJSON = `{"nim":"1901234","nama":"Budi Santoso"}`
	letter, err := f.svc.Create(context.Background(), req, nil, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, letter.Details)
	assert.Equal(t, "Budi Santoso", *letter.Details.Nama)
}

func TestLetterServiceCreateUnknownType(t *testing.T) {
	f := newLetterFixture()

	_, err := f.svc.Create(context.Background(), validLetterRequest("rahasia"), nil, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceCreateInvalidDate(t *testing.T) {
	f := newLetterFixture()

	req := validLetterRequest("biasa")
	req.Date = "kemarin"
	_, err := f.svc.Create(context.Background(), req, nil, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceCreateInvalidatesRekapCache(t *testing.T) {
	f := newLetterFixture()
	f.cache.entries = map[string][]byte{"rekap:letters:2024-01-01:2024-01-31:day": []byte("[]")}

	_, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), nil, adminClaims())
	require.NoError(t, err)
	assert.Empty(t, f.cache.entries)
	require.NotEmpty(t, f.cache.deletes)
	assert.Equal(t, "rekap:letters:*", f.cache.deletes[0])
}

func TestLetterServiceUpdateSwitchToPlainDropsDetails(t *testing.T) {
	f := newLetterFixture()
	req := validLetterRequest("keterangan")
	req.Details = &dto.LetterDetailsPayload{NIM: strPtr("1901234")}
	letter, err := f.svc.Create(context.Background(), req, nil, adminClaims())
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), letter.ID, dto.UpdateLetterRequest{LetterType: strPtr("biasa")}, nil, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.LetterTypeBiasa, updated.LetterType)
	assert.Nil(t, updated.Details)
}

func TestLetterServiceUpdateKeepsExistingDetails(t *testing.T) {
	f := newLetterFixture()
	req := validLetterRequest("keterangan")
	req.Details = &dto.LetterDetailsPayload{NIM: strPtr("1901234")}
	letter, err := f.svc.Create(context.Background(), req, nil, adminClaims())
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), letter.ID, dto.UpdateLetterRequest{Subject: strPtr("Perbaikan subjek")}, nil, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, updated.Details)
	assert.Equal(t, "1901234", *updated.Details.NIM)
	assert.Equal(t, "Perbaikan subjek", updated.Subject)
}

func TestLetterServiceUpdateStatusAppendsHistory(t *testing.T) {
	f := newLetterFixture()
	letter, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), nil, adminClaims())
	require.NoError(t, err)

	entry, err := f.svc.UpdateStatus(context.Background(), letter.ID, dto.UpdateLetterStatusRequest{Status: models.StatusDiteruskanFakultas}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDiteruskanFakultas, entry.Status)

	history, err := f.svc.History(context.Background(), letter.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	current, err := f.svc.Get(context.Background(), letter.ID)
	require.NoError(t, err)
	require.NotNil(t, current.CurrentStatus)
	assert.Equal(t, models.StatusDiteruskanFakultas, *current.CurrentStatus)
}

func TestLetterServiceHistoryItemMissing(t *testing.T) {
	f := newLetterFixture()
	letter, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), nil, adminClaims())
	require.NoError(t, err)

	err = f.svc.UpdateHistoryItem(context.Background(), letter.ID, 99, dto.UpdateHistoryItemRequest{Status: "Selesai"}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = f.svc.DeleteHistoryItem(context.Background(), letter.ID, 99, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceHonorsConfiguredMIMEs(t *testing.T) {
	f := newLetterFixture()
	f.svc = NewLetterService(f.repo, f.cache, f.storage, &mockOpener{}, f.signer, f.queue, &mockAudit{}, f.metrics, validator.New(), zap.NewNop(), LetterServiceConfig{
		AllowedMIMEs: []string{"application/pdf"},
	})

	file := &FileUpload{Filename: "scan.png", Size: 256, MimeType: "image/png", Content: strings.NewReader("png")}
	_, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), file, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceDeleteQueuesFileCleanup(t *testing.T) {
	f := newLetterFixture()
	file := &FileUpload{Filename: "surat.pdf", Size: 256, MimeType: "application/pdf", Content: strings.NewReader("pdf")}
	letter, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), file, adminClaims())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), letter.ID, adminClaims()))
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "file_cleanup", f.queue.jobs[0].Type)
	assert.Equal(t, "letters/surat.pdf", f.queue.jobs[0].Payload)
}

func TestLetterServiceRekapCachesResult(t *testing.T) {
	f := newLetterFixture()
	f.repo.rekapRows = []models.RekapRow{{Period: "2024-03-01", Total: 2}}

	q := dto.RekapQuery{StartDate: "2024-03-01", EndDate: "2024-03-31"}
	rows, err := f.svc.Rekap(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, f.repo.rekapCalls)
	assert.Equal(t, models.RekapByDay, f.repo.lastGroupBy)

	rows, err = f.svc.Rekap(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, f.repo.rekapCalls)
	assert.Equal(t, 1, f.metrics.hits)
	assert.Equal(t, 1, f.metrics.misses)
}

func TestLetterServiceRekapEndBeforeStart(t *testing.T) {
	f := newLetterFixture()

	_, err := f.svc.Rekap(context.Background(), dto.RekapQuery{StartDate: "2024-03-31", EndDate: "2024-03-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceRekapUnknownGrouping(t *testing.T) {
	f := newLetterFixture()

	_, err := f.svc.Rekap(context.Background(), dto.RekapQuery{StartDate: "2024-03-01", EndDate: "2024-03-31", GroupBy: "jam"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceExportRekapCSV(t *testing.T) {
	f := newLetterFixture()
	f.repo.rekapRows = []models.RekapRow{{Period: "2024-03", Total: 5}}

	payload, contentType, filename, err := f.svc.ExportRekap(context.Background(), dto.RekapQuery{StartDate: "2024-03-01", EndDate: "2024-03-31", GroupBy: "month"}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "rekap-surat.csv", filename)
	assert.Contains(t, string(payload), "2024-03")
	assert.Contains(t, string(payload), "Periode")
}

func TestLetterServiceExportRekapUnknownFormat(t *testing.T) {
	f := newLetterFixture()

	_, _, _, err := f.svc.ExportRekap(context.Background(), dto.RekapQuery{StartDate: "2024-03-01", EndDate: "2024-03-31"}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceFileToken(t *testing.T) {
	f := newLetterFixture()
	file := &FileUpload{Filename: "surat.pdf", Size: 256, MimeType: "application/pdf", Content: strings.NewReader("pdf")}
	letter, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), file, adminClaims())
	require.NoError(t, err)

	token, expiresAt, err := f.svc.FileToken(context.Background(), letter.ID)
	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
	assert.False(t, expiresAt.IsZero())
	assert.Equal(t, "letters/surat.pdf", f.signer.relPath)
}

func TestLetterServiceFileTokenWithoutAttachment(t *testing.T) {
	f := newLetterFixture()
	letter, err := f.svc.Create(context.Background(), validLetterRequest("biasa"), nil, adminClaims())
	require.NoError(t, err)

	_, _, err = f.svc.FileToken(context.Background(), letter.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLetterServiceDownload(t *testing.T) {
	f := newLetterFixture()
	f.signer.relPath = "letters/surat.pdf"

	download, err := f.svc.Download(context.Background(), "signed-token")
	require.NoError(t, err)
	require.NotNil(t, download.File)
	download.File.Close()
	assert.Equal(t, "letters/surat.pdf", download.Filename)
}

func TestLetterServiceListRejectsBadDates(t *testing.T) {
	f := newLetterFixture()

	_, _, err := f.svc.List(context.Background(), models.LetterFilter{}, "besok", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, appErrors.FromError(err).Code)
}
