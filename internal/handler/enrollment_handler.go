package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/lms-api/internal/authz"
	"github.com/campusworks/lms-api/internal/middleware"
	"github.com/campusworks/lms-api/internal/service"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
	"github.com/campusworks/lms-api/pkg/response"
)

// EnrollRequest holds payload for enrolling a student into a course.
type EnrollRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	CourseID  string `json:"course_id" binding:"required"`
}

// EnrollmentHandler exposes enrollment endpoints. Enroll and unenroll carry
// the student id in the payload rather than the path, so the ownership check
// runs here instead of in route middleware.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll a student into a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body handler.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if !h.allow(c, authz.OpEnroll, req.StudentID) {
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req.StudentID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Unenroll godoc
// @Summary Drop a student's active enrollment
// @Tags Enrollments
// @Param student query string true "Student ID"
// @Param course query string true "Course ID"
// @Success 204 "No Content"
// @Router /enrollments [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	studentID := c.Query("student")
	courseID := c.Query("course")
	if studentID == "" || courseID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student and course are required"))
		return
	}
	if !h.allow(c, authz.OpUnenroll, studentID) {
		return
	}

	if err := h.enrollments.Unenroll(c.Request.Context(), studentID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByStudent godoc
// @Summary List a student's active enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments/students/{studentId} [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	page, size := pageParams(c)
	enrollments, pagination, err := h.enrollments.ListByStudent(c.Request.Context(), c.Param("studentId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// ListByCourse godoc
// @Summary List a course's active enrollments
// @Tags Enrollments
// @Produce json
// @Param courseId path string true "Course ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments/courses/{courseId} [get]
func (h *EnrollmentHandler) ListByCourse(c *gin.Context) {
	page, size := pageParams(c)
	enrollments, pagination, err := h.enrollments.ListByCourse(c.Request.Context(), c.Param("courseId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

func (h *EnrollmentHandler) allow(c *gin.Context, op authz.Operation, studentID string) bool {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return false
	}
	principal := authz.Principal{
		AccountID:    claims.AccountID,
		Role:         claims.Role,
		StudentID:    claims.StudentID,
		InstructorID: claims.InstructorID,
	}
	if !authz.Allow(principal, op, authz.Target{StudentID: studentID}) {
		response.Error(c, appErrors.ErrForbidden)
		return false
	}
	return true
}
