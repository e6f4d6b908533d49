package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/lms-api/internal/models"
	"github.com/campusworks/lms-api/internal/service"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
	"github.com/campusworks/lms-api/pkg/response"
)

// InstructorHandler exposes instructor endpoints.
type InstructorHandler struct {
	instructors *service.InstructorService
}

// NewInstructorHandler constructs InstructorHandler.
func NewInstructorHandler(instructors *service.InstructorService) *InstructorHandler {
	return &InstructorHandler{instructors: instructors}
}

// List godoc
// @Summary List instructors
// @Tags Instructors
// @Produce json
// @Param search query string false "Search by number, name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	var filter models.InstructorFilter
	filter.Search = searchQuery(c)
	filter.Page, filter.PageSize = pageParams(c)

	instructors, pagination, err := h.instructors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, pagination)
}

// Get godoc
// @Summary Get instructor detail
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	instructor, err := h.instructors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Create godoc
// @Summary Register an instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Param payload body service.CreateInstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Router /instructors [post]
func (h *InstructorHandler) Create(c *gin.Context) {
	var req service.CreateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	instructor, err := h.instructors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// Update godoc
// @Summary Update instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Param id path string true "Instructor ID"
// @Param payload body service.UpdateInstructorRequest true "Instructor payload"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [put]
func (h *InstructorHandler) Update(c *gin.Context) {
	var req service.UpdateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	instructor, err := h.instructors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Delete godoc
// @Summary Delete instructor
// @Tags Instructors
// @Param id path string true "Instructor ID"
// @Success 204 "No Content"
// @Router /instructors/{id} [delete]
func (h *InstructorHandler) Delete(c *gin.Context) {
	if err := h.instructors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assign godoc
// @Summary Assign instructor to a course
// @Tags Instructors
// @Param id path string true "Instructor ID"
// @Param courseId path string true "Course ID"
// @Success 204 "No Content"
// @Router /instructors/{id}/courses/{courseId} [post]
func (h *InstructorHandler) Assign(c *gin.Context) {
	if err := h.instructors.AssignToCourse(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unassign godoc
// @Summary Remove instructor from a course
// @Tags Instructors
// @Param id path string true "Instructor ID"
// @Param courseId path string true "Course ID"
// @Success 204 "No Content"
// @Router /instructors/{id}/courses/{courseId} [delete]
func (h *InstructorHandler) Unassign(c *gin.Context) {
	if err := h.instructors.UnassignFromCourse(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCourses godoc
// @Summary List courses assigned to an instructor
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/courses [get]
func (h *InstructorHandler) ListCourses(c *gin.Context) {
	page, size := pageParams(c)
	courses, pagination, err := h.instructors.ListAssignedCourses(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}
