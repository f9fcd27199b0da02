package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classly-app/classly-api/internal/service"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
	"github.com/classly-app/classly-api/pkg/response"
)

// InvitationHandler exposes invitation token endpoints.
type InvitationHandler struct {
	invitations *service.InvitationService
}

// NewInvitationHandler constructs InvitationHandler.
func NewInvitationHandler(invitations *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// Create godoc
// @Summary Issue an invitation token
// @Tags Invitations
// @Accept json
// @Produce json
// @Param payload body service.CreateInvitationRequest true "Invitation payload"
// @Success 201 {object} response.Envelope
// @Router /invitations [post]
func (h *InvitationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invitation payload"))
		return
	}

	// Admin invites are scoped to the issuing admin's studio.
	if req.StudioID == nil && claims.StudioID != "" {
		studioID := claims.StudioID
		req.StudioID = &studioID
	}

	invitation, err := h.invitations.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invitation)
}

// Validate godoc
// @Summary Validate an invitation token
// @Description Public endpoint used by the signup page to preview the invitation.
// @Tags Invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /invitations/{token} [get]
func (h *InvitationHandler) Validate(c *gin.Context) {
	validation, err := h.invitations.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, validation, nil)
}

// Accept godoc
// @Summary Accept an invitation
// @Description Promotes the authenticated user to the invited role and studio.
// @Tags Invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /invitations/{token}/accept [post]
func (h *InvitationHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	validation, err := h.invitations.Accept(c.Request.Context(), c.Param("token"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, validation, nil)
}
