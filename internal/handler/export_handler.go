package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classly-app/classly-api/internal/models"
	"github.com/classly-app/classly-api/internal/service"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
	"github.com/classly-app/classly-api/pkg/response"
)

// ExportHandler serves downloadable roster and payment exports.
type ExportHandler struct {
	exports     *service.ExportService
	enrollments *service.EnrollmentService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, enrollments *service.EnrollmentService) *ExportHandler {
	return &ExportHandler{exports: exports, enrollments: enrollments}
}

// Roster godoc
// @Summary Export a class roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /exports/classes/{id}/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
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

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.Roster(c.Request.Context(), claims.StudioID, classID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeDownload(c, result)
}

// Payments godoc
// @Summary Export the studio payment history
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /exports/payments [get]
func (h *ExportHandler) Payments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.Payments(c.Request.Context(), claims.StudioID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeDownload(c, result)
}

func writeDownload(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(200, result.ContentType, result.Data)
}
