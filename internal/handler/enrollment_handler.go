package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classly-app/classly-api/internal/models"
	"github.com/classly-app/classly-api/internal/service"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
	"github.com/classly-app/classly-api/pkg/response"
)

// EnrollmentHandler exposes the enrollment engine over HTTP.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	metrics     *service.MetricsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, metrics: metrics}
}

// Register godoc
// @Summary Register a student to a class
// @Description Creates an enrollment, enforcing class capacity and duplicate checks. Students may only register themselves.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	// Students register themselves regardless of the payload.
	if claims.Role == models.RoleStudent {
		req.StudentID = claims.UserID
	}

	enrollment, snapshot, err := h.enrollments.Register(c.Request.Context(), claims.StudioID, req)
	if err != nil {
		h.metrics.RecordRegistration(registrationOutcome(err))
		response.Error(c, err)
		return
	}
	h.metrics.RecordRegistration("success")

	response.Created(c, gin.H{"enrollment": enrollment, "class": snapshot})
}

// MyEnrollments godoc
// @Summary List the authenticated student's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollments, err := h.enrollments.ListForStudent(c.Request.Context(), claims.StudioID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Cancel godoc
// @Summary Cancel an enrollment
// @Description Marks the enrollment CANCELLED and frees its seat. Idempotent. Students may only cancel their own enrollments.
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	actorStudentID := ""
	if claims.Role == models.RoleStudent {
		actorStudentID = claims.UserID
	}

	if err := h.enrollments.Cancel(c.Request.Context(), claims.StudioID, c.Param("id"), actorStudentID); err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCancellation()
	response.NoContent(c)
}

// Roster godoc
// @Summary List a class roster
// @Description Returns enrolled students in registration order. Instructors may only view their own classes.
// @Tags Enrollments
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id}/roster [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
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

	roster, err := h.enrollments.Roster(c.Request.Context(), claims.StudioID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

func registrationOutcome(err error) string {
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrClassFull.Code:
		return "full"
	case appErrors.ErrDuplicateEnrollment.Code:
		return "duplicate"
	default:
		return "error"
	}
}
