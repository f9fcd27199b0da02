package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

// PaymentGateway creates payment intents with the external provider.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountILS float64, currency, description string, metadata map[string]string) (id, clientSecret string, err error)
}

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	MarkFailed(ctx context.Context, intentID string) error
	ListByStudio(ctx context.Context, studioID string) ([]models.Payment, error)
}

type paymentReconciler interface {
	ReconcilePayment(ctx context.Context, paymentIntentID string, chargeID *string) error
}

// StripeGateway implements PaymentGateway against the Stripe API.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway constructs a gateway with the given secret key.
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// CreateIntent creates a Stripe payment intent. Stripe expects the amount
// in the smallest currency unit (agorot for ILS).
func (g *StripeGateway) CreateIntent(ctx context.Context, amountILS float64, currency, description string, metadata map[string]string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amountILS * 100))),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if description != "" {
		params.Description = stripe.String(description)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", "", err
	}
	return intent.ID, intent.ClientSecret, nil
}

// CreateIntentRequest describes a payment intent creation.
type CreateIntentRequest struct {
	StudentID    string  `json:"student_id" validate:"required"`
	EnrollmentID *string `json:"enrollment_id,omitempty"`
	AmountILS    float64 `json:"amount_ils" validate:"required,gt=0"`
	Description  string  `json:"description"`
}

// CreateIntentResponse returns the provider references the client needs.
type CreateIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

// PaymentService creates payment intents and processes provider webhooks.
type PaymentService struct {
	gateway       PaymentGateway
	repo          paymentRepository
	enrollments   paymentReconciler
	webhookSecret string
	currency      string
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
}

// NewPaymentService constructs PaymentService. metrics may be nil.
func NewPaymentService(gateway PaymentGateway, repo paymentRepository, enrollments paymentReconciler, webhookSecret, currency string, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "ils"
	}
	return &PaymentService{
		gateway:       gateway,
		repo:          repo,
		enrollments:   enrollments,
		webhookSecret: webhookSecret,
		currency:      currency,
		validator:     validate,
		logger:        logger,
		metrics:       metrics,
	}
}

// CreateIntent creates a provider payment intent and records a PENDING
// payment row holding the intent reference. The webhook later resolves the
// enrollment through that reference.
func (s *PaymentService) CreateIntent(ctx context.Context, studioID string, req CreateIntentRequest) (*CreateIntentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	metadata := map[string]string{"studio_id": studioID, "student_id": req.StudentID}
	if req.EnrollmentID != nil {
		metadata["enrollment_id"] = *req.EnrollmentID
	}

	intentID, clientSecret, err := s.gateway.CreateIntent(ctx, req.AmountILS, s.currency, req.Description, metadata)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment intent")
	}

	payment := &models.Payment{
		StudioID:              studioID,
		EnrollmentID:          req.EnrollmentID,
		StudentID:             req.StudentID,
		AmountILS:             req.AmountILS,
		Description:           req.Description,
		Status:                models.PaymentStatePending,
		StripePaymentIntentID: intentID,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	return &CreateIntentResponse{PaymentIntentID: intentID, ClientSecret: clientSecret}, nil
}

// HandleWebhook verifies the provider signature over the raw body and
// dispatches the event. A signature failure returns InvalidSignature so
// the HTTP layer answers 400 and the provider retries; handled events
// always succeed so the provider stops resending them.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidSignature.Code, appErrors.ErrInvalidSignature.Status, appErrors.ErrInvalidSignature.Message)
	}
	s.metrics.RecordWebhookEvent(string(event.Type))

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed payment intent payload")
		}
		var chargeID *string
		if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
			chargeID = &intent.LatestCharge.ID
		}
		s.logger.Info("payment succeeded event received", zap.String("payment_intent_id", intent.ID))
		return s.enrollments.ReconcilePayment(ctx, intent.ID, chargeID)

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed payment intent payload")
		}
		s.logger.Warn("payment failed event received", zap.String("payment_intent_id", intent.ID))
		if err := s.repo.MarkFailed(ctx, intent.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment failure")
		}
		return nil

	default:
		s.logger.Info("unhandled webhook event type", zap.String("type", string(event.Type)))
		return nil
	}
}

// List returns the studio's payment history.
func (s *PaymentService) List(ctx context.Context, studioID string) ([]models.Payment, error) {
	payments, err := s.repo.ListByStudio(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// monthStart returns the beginning of the current month in UTC.
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
