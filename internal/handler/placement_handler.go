package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/service"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/response"
)

// PlacementHandler exposes the 3-level placement family endpoints.
type PlacementHandler struct {
	placements *service.PlacementService
}

// NewPlacementHandler constructs PlacementHandler.
func NewPlacementHandler(placements *service.PlacementService) *PlacementHandler {
	return &PlacementHandler{placements: placements}
}

// ListCategories godoc
// @Summary List archive categories
// @Tags Placement
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *PlacementHandler) ListCategories(c *gin.Context) {
	categories, err := h.placements.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// CreateCategory godoc
// @Summary Create archive category
// @Tags Placement
// @Accept json
// @Produce json
// @Param payload body dto.ReferenceNameRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /categories [post]
func (h *PlacementHandler) CreateCategory(c *gin.Context) {
	var req dto.ReferenceNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.placements.CreateCategory(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update archive category
// @Tags Placement
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param payload body dto.ReferenceNameRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *PlacementHandler) UpdateCategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReferenceNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.placements.UpdateCategory(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// DeleteCategory godoc
// @Summary Delete archive category
// @Tags Placement
// @Param id path int true "Category ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /categories/{id} [delete]
func (h *PlacementHandler) DeleteCategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.placements.DeleteCategory(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubcategories godoc
// @Summary List archive subcategories
// @Tags Placement
// @Produce json
// @Param category_id query int false "Filter by category"
// @Success 200 {object} response.Envelope
// @Router /subcategories [get]
func (h *PlacementHandler) ListSubcategories(c *gin.Context) {
	subcategories, err := h.placements.ListSubcategories(c.Request.Context(), queryInt64(c, "category_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subcategories, nil)
}

// CreateSubcategory godoc
// @Summary Create archive subcategory
// @Tags Placement
// @Accept json
// @Produce json
// @Param payload body dto.SubcategoryRequest true "Subcategory payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subcategories [post]
func (h *PlacementHandler) CreateSubcategory(c *gin.Context) {
	var req dto.SubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subcategory payload"))
		return
	}
	subcategory, err := h.placements.CreateSubcategory(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subcategory)
}

// UpdateSubcategory godoc
// @Summary Update archive subcategory
// @Tags Placement
// @Accept json
// @Produce json
// @Param id path int true "Subcategory ID"
// @Param payload body dto.SubcategoryRequest true "Subcategory payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subcategories/{id} [put]
func (h *PlacementHandler) UpdateSubcategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subcategory payload"))
		return
	}
	subcategory, err := h.placements.UpdateSubcategory(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subcategory, nil)
}

// DeleteSubcategory godoc
// @Summary Delete archive subcategory
// @Tags Placement
// @Param id path int true "Subcategory ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subcategories/{id} [delete]
func (h *PlacementHandler) DeleteSubcategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.placements.DeleteSubcategory(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPositions godoc
// @Summary List archive positions
// @Tags Placement
// @Produce json
// @Param subcategory_id query int false "Filter by subcategory"
// @Success 200 {object} response.Envelope
// @Router /positions [get]
func (h *PlacementHandler) ListPositions(c *gin.Context) {
	positions, err := h.placements.ListPositions(c.Request.Context(), queryInt64(c, "subcategory_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, positions, nil)
}

// CreatePosition godoc
// @Summary Create archive position
// @Tags Placement
// @Accept json
// @Produce json
// @Param payload body dto.PositionRequest true "Position payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /positions [post]
func (h *PlacementHandler) CreatePosition(c *gin.Context) {
	var req dto.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid position payload"))
		return
	}
	position, err := h.placements.CreatePosition(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, position)
}

// UpdatePosition godoc
// @Summary Update archive position
// @Tags Placement
// @Accept json
// @Produce json
// @Param id path int true "Position ID"
// @Param payload body dto.PositionRequest true "Position payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /positions/{id} [put]
func (h *PlacementHandler) UpdatePosition(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid position payload"))
		return
	}
	position, err := h.placements.UpdatePosition(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// DeletePosition godoc
// @Summary Delete archive position
// @Tags Placement
// @Param id path int true "Position ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /positions/{id} [delete]
func (h *PlacementHandler) DeletePosition(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.placements.DeletePosition(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
