package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classly-app/classly-api/internal/service"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
	"github.com/classly-app/classly-api/pkg/response"
)

// Stripe caps webhook payloads at 64KB; anything larger is not ours.
const maxWebhookBody = 65536

// WebhookHandler receives payment provider callbacks. Unauthenticated:
// the Stripe-Signature header is the only trust anchor.
type WebhookHandler struct {
	payments *service.PaymentService
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(payments *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// Stripe godoc
// @Summary Stripe webhook receiver
// @Description Verifies the event signature and applies payment confirmations.
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "failed to read webhook body"))
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"received": true}, nil)
}
