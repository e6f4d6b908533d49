package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/lms-api/internal/middleware"
	"github.com/campusworks/lms-api/internal/service"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
	"github.com/campusworks/lms-api/pkg/response"
)

// UpsertGradeBody holds payload for recording a score.
type UpsertGradeBody struct {
	StudentID string `json:"student_id" binding:"required"`
	CourseID  string `json:"course_id" binding:"required"`
	Score     int    `json:"score"`
}

// GradeHandler exposes grading endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Upsert godoc
// @Summary Record or overwrite a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body handler.UpsertGradeBody true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Upsert(c *gin.Context) {
	var body UpsertGradeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	claims, ok := middleware.ClaimsFrom(c)
	if !ok || claims.InstructorID == "" {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	grade, err := h.grades.Upsert(c.Request.Context(), claims.InstructorID, body.StudentID, body.CourseID, service.UpsertGradeRequest{Score: body.Score})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ListByStudent godoc
// @Summary List a student's grades
// @Tags Grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grades/students/{studentId} [get]
func (h *GradeHandler) ListByStudent(c *gin.Context) {
	page, size := pageParams(c)
	grades, pagination, err := h.grades.ListByStudent(c.Request.Context(), c.Param("studentId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, pagination)
}

// ListByCourse godoc
// @Summary List a course's grades
// @Tags Grades
// @Produce json
// @Param courseId path string true "Course ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grades/courses/{courseId} [get]
func (h *GradeHandler) ListByCourse(c *gin.Context) {
	page, size := pageParams(c)
	grades, pagination, err := h.grades.ListByCourse(c.Request.Context(), c.Param("courseId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, pagination)
}

// Summary godoc
// @Summary GPA summary for a student
// @Tags Grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /grades/students/{studentId}/summary [get]
func (h *GradeHandler) Summary(c *gin.Context) {
	summary, err := h.grades.SummaryByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Transcript godoc
// @Summary Download a student's transcript
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /grades/students/{studentId}/transcript [get]
func (h *GradeHandler) Transcript(c *gin.Context) {
	format := service.TranscriptFormat(c.DefaultQuery("format", "csv"))
	payload, contentType, err := h.grades.TranscriptByStudent(c.Request.Context(), c.Param("studentId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="transcript.`+string(format)+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
