package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type mockRosterSource struct {
	entries []models.RosterEntry
}

func (m *mockRosterSource) Roster(ctx context.Context, studioID, classID string) ([]models.RosterEntry, error) {
	return m.entries, nil
}

type mockPaymentSource struct {
	payments []models.Payment
}

func (m *mockPaymentSource) ListByStudio(ctx context.Context, studioID string) ([]models.Payment, error) {
	return m.payments, nil
}

type mockClassTitleSource struct {
	class *models.ClassSession
}

func (m *mockClassTitleSource) FindByID(ctx context.Context, studioID, id string) (*models.ClassSession, error) {
	if m.class == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return m.class, nil
}

func TestExportRosterCSV(t *testing.T) {
	classes := &mockClassTitleSource{class: &models.ClassSession{ID: "class-1", Name: "Ballet Beginners"}}
	enrollments := &mockRosterSource{entries: []models.RosterEntry{
		{
			StudentName:   "Noa Levi",
			StudentEmail:  "noa@example.com",
			StudentPhone:  "050-1234567",
			Status:        models.EnrollmentStatusActive,
			PaymentStatus: models.PaymentStatusPaid,
			RegisteredAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewExportService(enrollments, &mockPaymentSource{}, classes, zap.NewNop())

	result, err := svc.Roster(context.Background(), "studio-1", "class-1", ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.FileName, "ballet-beginners-roster-"))
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))

	body := string(result.Data)
	assert.Contains(t, body, "Student,Email,Phone,Status,Payment,Registered")
	assert.Contains(t, body, "Noa Levi")
	assert.Contains(t, body, "2026-02-01")
}

func TestExportRosterPDF(t *testing.T) {
	classes := &mockClassTitleSource{class: &models.ClassSession{ID: "class-1", Name: "Ballet Beginners"}}
	svc := NewExportService(&mockRosterSource{}, &mockPaymentSource{}, classes, zap.NewNop())

	result, err := svc.Roster(context.Background(), "studio-1", "class-1", ExportFormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.FileName, ".pdf"))
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestExportRosterUnknownClass(t *testing.T) {
	svc := NewExportService(&mockRosterSource{}, &mockPaymentSource{}, &mockClassTitleSource{}, zap.NewNop())

	_, err := svc.Roster(context.Background(), "studio-1", "class-missing", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportPaymentsCSV(t *testing.T) {
	paid := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	payments := &mockPaymentSource{payments: []models.Payment{
		{
			StudentID:   "student-1",
			Description: "Monthly fee",
			AmountILS:   250,
			Status:      models.PaymentStateSucceeded,
			PaidDate:    &paid,
			CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewExportService(&mockRosterSource{}, payments, &mockClassTitleSource{}, zap.NewNop())

	result, err := svc.Payments(context.Background(), "studio-1", ExportFormatCSV)
	require.NoError(t, err)

	body := string(result.Data)
	assert.Contains(t, body, "250.00")
	assert.Contains(t, body, "SUCCEEDED")
	assert.Contains(t, body, "2026-03-05")
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockRosterSource{}, &mockPaymentSource{}, &mockClassTitleSource{}, zap.NewNop())

	_, err := svc.Payments(context.Background(), "studio-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
