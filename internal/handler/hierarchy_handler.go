package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/service"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/response"
)

// HierarchyHandler serves all six static-field levels through one set of
// level-parameterised endpoints.
type HierarchyHandler struct {
	hierarchy *service.HierarchyService
}

// NewHierarchyHandler constructs HierarchyHandler.
func NewHierarchyHandler(hierarchy *service.HierarchyService) *HierarchyHandler {
	return &HierarchyHandler{hierarchy: hierarchy}
}

// List godoc
// @Summary List static-field nodes at a level
// @Tags StaticFields
// @Produce json
// @Param level path string true "Level (categories, subcategories, locations, cabinets, shelves, positions)"
// @Param parent_id query int false "Filter by parent"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /static-fields/{level} [get]
func (h *HierarchyHandler) List(c *gin.Context) {
	desc, err := h.hierarchy.Descriptor(c.Param("level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	nodes, err := h.hierarchy.List(c.Request.Context(), desc, queryInt64(c, "parent_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nodes, nil)
}

// Get godoc
// @Summary Get one static-field node
// @Tags StaticFields
// @Produce json
// @Param level path string true "Level"
// @Param id path int true "Node ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /static-fields/{level}/{id} [get]
func (h *HierarchyHandler) Get(c *gin.Context) {
	desc, err := h.hierarchy.Descriptor(c.Param("level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	node, err := h.hierarchy.Get(c.Request.Context(), desc, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, node, nil)
}

// Create godoc
// @Summary Create static-field node
// @Tags StaticFields
// @Accept json
// @Produce json
// @Param level path string true "Level"
// @Param payload body dto.HierarchyNodeRequest true "Node payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /static-fields/{level} [post]
func (h *HierarchyHandler) Create(c *gin.Context) {
	desc, err := h.hierarchy.Descriptor(c.Param("level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.HierarchyNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid node payload"))
		return
	}
	node, err := h.hierarchy.Create(c.Request.Context(), desc, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, node)
}

// Update godoc
// @Summary Update static-field node
// @Tags StaticFields
// @Accept json
// @Produce json
// @Param level path string true "Level"
// @Param id path int true "Node ID"
// @Param payload body dto.HierarchyNodeRequest true "Node payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /static-fields/{level}/{id} [put]
func (h *HierarchyHandler) Update(c *gin.Context) {
	desc, err := h.hierarchy.Descriptor(c.Param("level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.HierarchyNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid node payload"))
		return
	}
	node, err := h.hierarchy.Update(c.Request.Context(), desc, id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, node, nil)
}

// Delete godoc
// @Summary Delete static-field node
// @Tags StaticFields
// @Param level path string true "Level"
// @Param id path int true "Node ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /static-fields/{level}/{id} [delete]
func (h *HierarchyHandler) Delete(c *gin.Context) {
	desc, err := h.hierarchy.Descriptor(c.Param("level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.hierarchy.Delete(c.Request.Context(), desc, id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
