package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	"github.com/noah-isme/arsip-biak-api/internal/service"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/response"
)

// ArchiveHandler exposes the archive catalog endpoints.
type ArchiveHandler struct {
	archives *service.ArchiveService
}

// NewArchiveHandler constructs ArchiveHandler.
func NewArchiveHandler(archives *service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archives: archives}
}

// openUpload converts a multipart file header into the service upload shape.
// The returned closer must be called after the service finishes reading.
func openUpload(c *gin.Context, field string) (*service.FileUpload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file upload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	upload := &service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: uploadMimeType(header),
		Content:  file,
	}
	return upload, func() { file.Close() }, nil
}

func uploadMimeType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(ct)
}

// List godoc
// @Summary List archives
// @Tags Archives
// @Produce json
// @Param search query string false "Search title or description"
// @Param category_id query int false "Filter by category"
// @Param category query string false "Filter by category name"
// @Param subcategory_id query int false "Filter by subcategory"
// @Param position_id query int false "Filter by position"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /archives [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	var filter models.ArchiveFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.CategoryName = strings.TrimSpace(c.Query("category"))
	filter.CategoryID = queryInt64(c, "category_id")
	filter.SubcategoryID = queryInt64(c, "subcategory_id")
	filter.PositionID = queryInt64(c, "position_id")
	if page := queryInt64(c, "page"); page != nil {
		filter.Page = int(*page)
	}
	if limit := queryInt64(c, "limit"); limit != nil {
		filter.Limit = int(*limit)
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	archives, pagination, err := h.archives.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, archives, pagination)
}

// Get godoc
// @Summary Get archive detail
// @Tags Archives
// @Produce json
// @Param id path int true "Archive ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archives/{id} [get]
func (h *ArchiveHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	archive, err := h.archives.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, archive, nil)
}

// Create godoc
// @Summary Create archive
// @Tags Archives
// @Accept mpfd
// @Produce json
// @Param title formData string true "Title"
// @Param image formData file false "Scanned image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /archives [post]
func (h *ArchiveHandler) Create(c *gin.Context) {
	var req dto.CreateArchiveRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid archive payload"))
		return
	}

	image, closeUpload, err := openUpload(c, "image")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	archive, err := h.archives.Create(c.Request.Context(), req, image, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, archive)
}

// Update godoc
// @Summary Update archive
// @Tags Archives
// @Accept mpfd
// @Produce json
// @Param id path int true "Archive ID"
// @Param image formData file false "Replacement image"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archives/{id} [put]
func (h *ArchiveHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateArchiveRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid archive payload"))
		return
	}

	image, closeUpload, err := openUpload(c, "image")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	archive, err := h.archives.Update(c.Request.Context(), id, req, image, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, archive, nil)
}

// Delete godoc
// @Summary Delete archive
// @Tags Archives
// @Param id path int true "Archive ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archives/{id} [delete]
func (h *ArchiveHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.archives.Delete(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
