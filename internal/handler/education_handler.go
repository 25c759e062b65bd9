package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	"github.com/noah-isme/arsip-biak-api/internal/service"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
	"github.com/noah-isme/arsip-biak-api/pkg/response"
)

// EducationHandler exposes the education reference endpoints feeding letter
// forms.
type EducationHandler struct {
	education *service.EducationService
}

// NewEducationHandler constructs EducationHandler.
func NewEducationHandler(education *service.EducationService) *EducationHandler {
	return &EducationHandler{education: education}
}

// ListLevels godoc
// @Summary List education levels
// @Tags Education
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /education/levels [get]
func (h *EducationHandler) ListLevels(c *gin.Context) {
	levels, err := h.education.ListLevels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, levels, nil)
}

// CreateLevel godoc
// @Summary Create education level
// @Tags Education
// @Accept json
// @Produce json
// @Param payload body dto.ReferenceNameRequest true "Level payload"
// @Success 201 {object} response.Envelope
// @Router /education/levels [post]
func (h *EducationHandler) CreateLevel(c *gin.Context) {
	var req dto.ReferenceNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid level payload"))
		return
	}
	level, err := h.education.CreateLevel(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, level)
}

// UpdateLevel godoc
// @Summary Update education level
// @Tags Education
// @Accept json
// @Produce json
// @Param id path int true "Level ID"
// @Param payload body dto.ReferenceNameRequest true "Level payload"
// @Success 200 {object} response.Envelope
// @Router /education/levels/{id} [put]
func (h *EducationHandler) UpdateLevel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReferenceNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid level payload"))
		return
	}
	level, err := h.education.UpdateLevel(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, level, nil)
}

// DeleteLevel godoc
// @Summary Delete education level
// @Tags Education
// @Param id path int true "Level ID"
// @Success 204 {object} response.Envelope
// @Router /education/levels/{id} [delete]
func (h *EducationHandler) DeleteLevel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.education.DeleteLevel(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListFaculties godoc
// @Summary List faculties
// @Tags Education
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /education/faculties [get]
func (h *EducationHandler) ListFaculties(c *gin.Context) {
	faculties, err := h.education.ListFaculties(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculties, nil)
}

// CreateFaculty godoc
// @Summary Create faculty
// @Tags Education
// @Accept json
// @Produce json
// @Param payload body dto.ReferenceNameRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /education/faculties [post]
func (h *EducationHandler) CreateFaculty(c *gin.Context) {
	var req dto.ReferenceNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid faculty payload"))
		return
	}
	faculty, err := h.education.CreateFaculty(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, faculty)
}

// UpdateFaculty godoc
// @Summary Update faculty
// @Tags Education
// @Accept json
// @Produce json
// @Param id path int true "Faculty ID"
// @Param payload body dto.ReferenceNameRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Router /education/faculties/{id} [put]
func (h *EducationHandler) UpdateFaculty(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReferenceNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid faculty payload"))
		return
	}
	faculty, err := h.education.UpdateFaculty(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// DeleteFaculty godoc
// @Summary Delete faculty
// @Tags Education
// @Param id path int true "Faculty ID"
// @Success 204 {object} response.Envelope
// @Router /education/faculties/{id} [delete]
func (h *EducationHandler) DeleteFaculty(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.education.DeleteFaculty(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPrograms godoc
// @Summary List study programs
// @Tags Education
// @Produce json
// @Param faculty_id query int false "Filter by faculty"
// @Param level_id query int false "Filter by education level"
// @Success 200 {object} response.Envelope
// @Router /education/programs [get]
func (h *EducationHandler) ListPrograms(c *gin.Context) {
	filter := models.ProgramFilter{
		FacultyID: queryInt64(c, "faculty_id"),
		LevelID:   queryInt64(c, "level_id"),
	}
	programs, err := h.education.ListPrograms(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, nil)
}

// CreateProgram godoc
// @Summary Create study program
// @Tags Education
// @Accept json
// @Produce json
// @Param payload body dto.ProgramRequest true "Program payload"
// @Success 201 {object} response.Envelope
// @Router /education/programs [post]
func (h *EducationHandler) CreateProgram(c *gin.Context) {
	var req dto.ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}
	program, err := h.education.CreateProgram(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// UpdateProgram godoc
// @Summary Update study program
// @Tags Education
// @Accept json
// @Produce json
// @Param id path int true "Program ID"
// @Param payload body dto.ProgramRequest true "Program payload"
// @Success 200 {object} response.Envelope
// @Router /education/programs/{id} [put]
func (h *EducationHandler) UpdateProgram(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}
	program, err := h.education.UpdateProgram(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// DeleteProgram godoc
// @Summary Delete study program
// @Tags Education
// @Param id path int true "Program ID"
// @Success 204 {object} response.Envelope
// @Router /education/programs/{id} [delete]
func (h *EducationHandler) DeleteProgram(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.education.DeleteProgram(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
