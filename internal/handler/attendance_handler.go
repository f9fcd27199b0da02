package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classly-app/classly-api/internal/models"
	"github.com/classly-app/classly-api/internal/service"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
	"github.com/classly-app/classly-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance  *service.AttendanceService
	enrollments *service.EnrollmentService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, enrollments *service.EnrollmentService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, enrollments: enrollments}
}

// Record godoc
// @Summary Record attendance for a class date
// @Description Upserts attendance marks for enrolled students. Marks for unenrolled students are skipped and reported back.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id}/attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("id")

	if claims.Role == models.RoleInstructor {
		owns, err := h.enrollments.VerifyInstructorClass(c.Request.Context(), claims.StudioID, classID, claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !owns {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	result, err := h.attendance.Record(c.Request.Context(), claims.StudioID, classID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ForClass godoc
// @Summary List attendance for a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param date query string false "Session date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [get]
func (h *AttendanceHandler) ForClass(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		date = &parsed
	}

	records, err := h.attendance.ForClass(c.Request.Context(), claims.StudioID, c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ForStudent godoc
// @Summary List a student's attendance history
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) ForStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	records, err := h.attendance.ForStudent(c.Request.Context(), claims.StudioID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
