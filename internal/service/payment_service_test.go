package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

const testWebhookSecret = "whsec_test"

type mockPaymentGateway struct {
	intentID     string
	clientSecret string
	err          error

	gotAmount   float64
	gotCurrency string
	gotMetadata map[string]string
}

func (m *mockPaymentGateway) CreateIntent(ctx context.Context, amountILS float64, currency, description string, metadata map[string]string) (string, string, error) {
	m.gotAmount = amountILS
	m.gotCurrency = currency
	m.gotMetadata = metadata
	return m.intentID, m.clientSecret, m.err
}

type mockPaymentRepo struct {
	created []*models.Payment
	failed  []string
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	m.created = append(m.created, payment)
	return nil
}

func (m *mockPaymentRepo) MarkFailed(ctx context.Context, intentID string) error {
	m.failed = append(m.failed, intentID)
	return nil
}

func (m *mockPaymentRepo) ListByStudio(ctx context.Context, studioID string) ([]models.Payment, error) {
	return nil, nil
}

type mockReconciler struct {
	intentIDs []string
	chargeIDs []*string
}

func (m *mockReconciler) ReconcilePayment(ctx context.Context, paymentIntentID string, chargeID *string) error {
	m.intentIDs = append(m.intentIDs, paymentIntentID)
	m.chargeIDs = append(m.chargeIDs, chargeID)
	return nil
}

// signWebhookPayload builds a Stripe-Signature header the way Stripe signs
// webhook deliveries: an HMAC-SHA256 over "<timestamp>.<payload>".
func signWebhookPayload(secret string, payload []byte) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func webhookEventPayload(eventType, objectJSON string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, objectJSON))
}

func TestCreateIntentRecordsPendingPayment(t *testing.T) {
	gateway := &mockPaymentGateway{intentID: "pi_123", clientSecret: "pi_123_secret"}
	repo := &mockPaymentRepo{}
	svc := NewPaymentService(gateway, repo, &mockReconciler{}, testWebhookSecret, "ils", nil, nil, nil)

	enrollmentID := "enr-1"
	resp, err := svc.CreateIntent(context.Background(), "studio-1", CreateIntentRequest{
		StudentID:    "student-1",
		EnrollmentID: &enrollmentID,
		AmountILS:    250,
		Description:  "Ballet Beginners monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", resp.PaymentIntentID)
	assert.Equal(t, "pi_123_secret", resp.ClientSecret)

	assert.Equal(t, float64(250), gateway.gotAmount)
	assert.Equal(t, "ils", gateway.gotCurrency)
	assert.Equal(t, "studio-1", gateway.gotMetadata["studio_id"])
	assert.Equal(t, "enr-1", gateway.gotMetadata["enrollment_id"])

	require.Len(t, repo.created, 1)
	payment := repo.created[0]
	assert.Equal(t, models.PaymentStatePending, payment.Status)
	assert.Equal(t, "pi_123", payment.StripePaymentIntentID)
	assert.Equal(t, "student-1", payment.StudentID)
	require.NotNil(t, payment.EnrollmentID)
	assert.Equal(t, "enr-1", *payment.EnrollmentID)
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	gateway := &mockPaymentGateway{}
	svc := NewPaymentService(gateway, &mockPaymentRepo{}, &mockReconciler{}, testWebhookSecret, "ils", nil, nil, nil)

	_, err := svc.CreateIntent(context.Background(), "studio-1", CreateIntentRequest{
		StudentID: "student-1",
		AmountILS: 0,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, gateway.gotCurrency)
}

func TestWebhookSucceededEventReconciles(t *testing.T) {
	reconciler := &mockReconciler{}
	svc := NewPaymentService(&mockPaymentGateway{}, &mockPaymentRepo{}, reconciler, testWebhookSecret, "ils", nil, nil, nil)

	payload := webhookEventPayload("payment_intent.succeeded", `{"id":"pi_123","latest_charge":{"id":"ch_9"}}`)
	err := svc.HandleWebhook(context.Background(), payload, signWebhookPayload(testWebhookSecret, payload))
	require.NoError(t, err)

	require.Equal(t, []string{"pi_123"}, reconciler.intentIDs)
	require.NotNil(t, reconciler.chargeIDs[0])
	assert.Equal(t, "ch_9", *reconciler.chargeIDs[0])
}

func TestWebhookFailedEventMarksPayment(t *testing.T) {
	repo := &mockPaymentRepo{}
	reconciler := &mockReconciler{}
	svc := NewPaymentService(&mockPaymentGateway{}, repo, reconciler, testWebhookSecret, "ils", nil, nil, nil)

	payload := webhookEventPayload("payment_intent.payment_failed", `{"id":"pi_123"}`)
	err := svc.HandleWebhook(context.Background(), payload, signWebhookPayload(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.Equal(t, []string{"pi_123"}, repo.failed)
	assert.Empty(t, reconciler.intentIDs)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	reconciler := &mockReconciler{}
	svc := NewPaymentService(&mockPaymentGateway{}, &mockPaymentRepo{}, reconciler, testWebhookSecret, "ils", nil, nil, nil)

	payload := webhookEventPayload("payment_intent.succeeded", `{"id":"pi_123"}`)
	err := svc.HandleWebhook(context.Background(), payload, signWebhookPayload("whsec_wrong", payload))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidSignature.Code, appErrors.FromError(err).Code)
	assert.Empty(t, reconciler.intentIDs)
}

func TestWebhookIgnoresUnhandledEventTypes(t *testing.T) {
	repo := &mockPaymentRepo{}
	reconciler := &mockReconciler{}
	svc := NewPaymentService(&mockPaymentGateway{}, repo, reconciler, testWebhookSecret, "ils", nil, nil, nil)

	payload := webhookEventPayload("charge.refunded", `{"id":"ch_1"}`)
	err := svc.HandleWebhook(context.Background(), payload, signWebhookPayload(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.Empty(t, repo.failed)
	assert.Empty(t, reconciler.intentIDs)
}
