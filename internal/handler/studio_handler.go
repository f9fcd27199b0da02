package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classly-app/classly-api/internal/service"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
	"github.com/classly-app/classly-api/pkg/response"
)

// StudioHandler exposes studio, branch and room endpoints.
type StudioHandler struct {
	studios *service.StudioService
}

// NewStudioHandler constructs StudioHandler.
func NewStudioHandler(studios *service.StudioService) *StudioHandler {
	return &StudioHandler{studios: studios}
}

// Get godoc
// @Summary Get the authenticated user's studio
// @Tags Studios
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /studio [get]
func (h *StudioHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studio, err := h.studios.Get(c.Request.Context(), claims.StudioID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, studio, nil)
}

// Create godoc
// @Summary Create a studio for an admin who does not own one yet
// @Tags Studios
// @Accept json
// @Produce json
// @Param payload body service.StudioRequest true "Studio payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /studio [post]
func (h *StudioHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.StudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid studio payload"))
		return
	}

	studio, err := h.studios.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, studio)
}

// Update godoc
// @Summary Update the studio profile
// @Tags Studios
// @Accept json
// @Produce json
// @Param payload body service.StudioRequest true "Studio payload"
// @Success 200 {object} response.Envelope
// @Router /studio [put]
func (h *StudioHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.StudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid studio payload"))
		return
	}

	studio, err := h.studios.Update(c.Request.Context(), claims.StudioID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, studio, nil)
}

// Branches godoc
// @Summary List studio branches
// @Tags Studios
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /studio/branches [get]
func (h *StudioHandler) Branches(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	branches, err := h.studios.Branches(c.Request.Context(), claims.StudioID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branches, nil)
}

// CreateBranch godoc
// @Summary Create a branch
// @Tags Studios
// @Accept json
// @Produce json
// @Param payload body service.BranchRequest true "Branch payload"
// @Success 201 {object} response.Envelope
// @Router /studio/branches [post]
func (h *StudioHandler) CreateBranch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid branch payload"))
		return
	}

	branch, err := h.studios.CreateBranch(c.Request.Context(), claims.StudioID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, branch)
}

// DeleteBranch godoc
// @Summary Delete a branch
// @Tags Studios
// @Produce json
// @Param id path string true "Branch ID"
// @Success 204
// @Router /studio/branches/{id} [delete]
func (h *StudioHandler) DeleteBranch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.studios.DeleteBranch(c.Request.Context(), claims.StudioID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Rooms godoc
// @Summary List rooms
// @Tags Studios
// @Produce json
// @Param branchId query string false "Filter by branch"
// @Success 200 {object} response.Envelope
// @Router /studio/rooms [get]
func (h *StudioHandler) Rooms(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rooms, err := h.studios.Rooms(c.Request.Context(), claims.StudioID, c.Query("branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// CreateRoom godoc
// @Summary Create a room
// @Tags Studios
// @Accept json
// @Produce json
// @Param payload body service.RoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Router /studio/rooms [post]
func (h *StudioHandler) CreateRoom(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room payload"))
		return
	}

	room, err := h.studios.CreateRoom(c.Request.Context(), claims.StudioID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// DeleteRoom godoc
// @Summary Delete a room
// @Tags Studios
// @Produce json
// @Param id path string true "Room ID"
// @Success 204
// @Router /studio/rooms/{id} [delete]
func (h *StudioHandler) DeleteRoom(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.studios.DeleteRoom(c.Request.Context(), claims.StudioID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
