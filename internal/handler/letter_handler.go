package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	"github.com/noah-isme/arsip-biak-api/internal/service"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/response"
)

// LetterHandler exposes the BIAK letter tracker endpoints.
type LetterHandler struct {
	letters *service.LetterService
}

// NewLetterHandler constructs LetterHandler.
func NewLetterHandler(letters *service.LetterService) *LetterHandler {
	return &LetterHandler{letters: letters}
}

// List godoc
// @Summary List letters
// @Tags Letters
// @Produce json
// @Param search query string false "Search name, subject or sender"
// @Param letter_type query string false "Filter by type"
// @Param status query string false "Filter by current status"
// @Param start_date query string false "Letter date lower bound"
// @Param end_date query string false "Letter date upper bound"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /letters [get]
func (h *LetterHandler) List(c *gin.Context) {
	var filter models.LetterFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.LetterType = models.LetterType(c.Query("letter_type"))
	filter.Status = strings.TrimSpace(c.Query("status"))
	if page := queryInt64(c, "page"); page != nil {
		filter.Page = int(*page)
	}
	if limit := queryInt64(c, "limit"); limit != nil {
		filter.Limit = int(*limit)
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	letters, pagination, err := h.letters.List(c.Request.Context(), filter, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, letters, pagination)
}

// Get godoc
// @Summary Get letter detail
// @Tags Letters
// @Produce json
// @Param id path int true "Letter ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id} [get]
func (h *LetterHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	letter, err := h.letters.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, letter, nil)
}

// Create godoc
// @Summary Create letter
// @Description Register a letter; non-plain types need a details block,
// @Description JSON-encoded in the "details" form field on multipart uploads.
// @Tags Letters
// @Accept mpfd
// @Produce json
// @Param name formData string true "Letter name"
// @Param file formData file false "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /letters [post]
func (h *LetterHandler) Create(c *gin.Context) {
	var req dto.CreateLetterRequest
	if err := bindLetterRequest(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	file, closeUpload, err := openUpload(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	letter, err := h.letters.Create(c.Request.Context(), req, file, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, letter)
}

// Update godoc
// @Summary Update letter
// @Tags Letters
// @Accept mpfd
// @Produce json
// @Param id path int true "Letter ID"
// @Param file formData file false "Replacement attachment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id} [put]
func (h *LetterHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateLetterRequest
	if err := bindLetterRequest(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	file, closeUpload, err := openUpload(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	letter, err := h.letters.Update(c.Request.Context(), id, req, file, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, letter, nil)
}

// bindLetterRequest accepts either a JSON body or a multipart form, matching
// how the frontend submits letters with and without attachments.
func bindLetterRequest(c *gin.Context, req interface{}) error {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "application/json") {
		if err := c.ShouldBindJSON(req); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid letter payload")
		}
		return nil
	}
	if err := c.ShouldBind(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid letter payload")
	}
	return nil
}

// Delete godoc
// @Summary Delete letter
// @Tags Letters
// @Param id path int true "Letter ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id} [delete]
func (h *LetterHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.letters.Delete(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Append letter status
// @Description Record a new status-history entry and refresh the cached
// @Description current status.
// @Tags Letters
// @Accept json
// @Produce json
// @Param id path int true "Letter ID"
// @Param payload body dto.UpdateLetterStatusRequest true "Status payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id}/status [put]
func (h *LetterHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateLetterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	entry, err := h.letters.UpdateStatus(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// History godoc
// @Summary Letter status history
// @Tags Letters
// @Produce json
// @Param id path int true "Letter ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id}/history [get]
func (h *LetterHandler) History(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.letters.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// UpdateHistoryItem godoc
// @Summary Edit a history entry
// @Tags Letters
// @Accept json
// @Produce json
// @Param id path int true "Letter ID"
// @Param historyId path int true "History entry ID"
// @Param payload body dto.UpdateHistoryItemRequest true "History payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id}/history/{historyId} [put]
func (h *LetterHandler) UpdateHistoryItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	historyID, err := pathID(c, "historyId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateHistoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid history payload"))
		return
	}
	if err := h.letters.UpdateHistoryItem(c.Request.Context(), id, historyID, req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteHistoryItem godoc
// @Summary Delete a history entry
// @Tags Letters
// @Param id path int true "Letter ID"
// @Param historyId path int true "History entry ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id}/history/{historyId} [delete]
func (h *LetterHandler) DeleteHistoryItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	historyID, err := pathID(c, "historyId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.letters.DeleteHistoryItem(c.Request.Context(), id, historyID, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Rekap godoc
// @Summary Aggregate letter counts
// @Tags Letters
// @Produce json
// @Param start_date query string true "Range start"
// @Param end_date query string true "Range end"
// @Param group_by query string false "day, week or month (default day)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /letters/rekap/summary [get]
func (h *LetterHandler) Rekap(c *gin.Context) {
	var q dto.RekapQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rekap query"))
		return
	}
	rows, err := h.letters.Rekap(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ExportRekap godoc
// @Summary Export letter aggregate
// @Tags Letters
// @Produce text/csv
// @Produce application/pdf
// @Param start_date query string true "Range start"
// @Param end_date query string true "Range end"
// @Param group_by query string false "day, week or month"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /letters/rekap/export [get]
func (h *LetterHandler) ExportRekap(c *gin.Context) {
	var q dto.RekapQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rekap query"))
		return
	}
	payload, contentType, filename, err := h.letters.ExportRekap(c.Request.Context(), q, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

// FileToken godoc
// @Summary Issue a download token for the attachment
// @Tags Letters
// @Produce json
// @Param id path int true "Letter ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /letters/{id}/file [get]
func (h *LetterHandler) FileToken(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	token, expiresAt, err := h.letters.FileToken(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token": token, "expires_at": expiresAt}, nil)
}

// Download godoc
// @Summary Stream an attachment by signed token
// @Tags Letters
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /letters/download [get]
func (h *LetterHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.letters.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	filename := filepath.Base(download.Filename)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.File(download.File.Name())
}
