package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
	"github.com/classly-app/classly-api/pkg/export"
)

// ExportFormat selects an output encoding for exports.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries the rendered bytes together with the metadata the
// handler needs to set response headers.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

type rosterExporterSource interface {
	Roster(ctx context.Context, studioID, classID string) ([]models.RosterEntry, error)
}

type paymentExporterSource interface {
	ListByStudio(ctx context.Context, studioID string) ([]models.Payment, error)
}

type classTitleSource interface {
	FindByID(ctx context.Context, studioID, id string) (*models.ClassSession, error)
}

// ExportService renders class rosters and payment histories as downloadable
// CSV or PDF documents.
type ExportService struct {
	enrollments rosterExporterSource
	payments    paymentExporterSource
	classes     classTitleSource
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

func NewExportService(enrollments rosterExporterSource, payments paymentExporterSource, classes classTitleSource, logger *zap.Logger) *ExportService {
	return &ExportService{
		enrollments: enrollments,
		payments:    payments,
		classes:     classes,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Roster exports the enrollment roster of one class.
func (s *ExportService) Roster(ctx context.Context, studioID, classID string, format ExportFormat) (*ExportResult, error) {
	class, err := s.classes.FindByID(ctx, studioID, classID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	entries, err := s.enrollments.Roster(ctx, studioID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Phone", "Status", "Payment", "Registered"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, e := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    e.StudentName,
			"Email":      e.StudentEmail,
			"Phone":      e.StudentPhone,
			"Status":     string(e.Status),
			"Payment":    string(e.PaymentStatus),
			"Registered": e.RegisteredAt.Format("2006-01-02"),
		})
	}

	title := fmt.Sprintf("Roster - %s", class.Name)
	return s.render(dataset, title, fileSlug(class.Name)+"-roster", format)
}

// Payments exports the studio's payment history.
func (s *ExportService) Payments(ctx context.Context, studioID string, format ExportFormat) (*ExportResult, error) {
	payments, err := s.payments.ListByStudio(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Student", "Description", "Amount (ILS)", "Status", "Paid"},
		Rows:    make([]map[string]string, 0, len(payments)),
	}
	for _, p := range payments {
		paid := ""
		if p.PaidDate != nil {
			paid = p.PaidDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":         p.CreatedAt.Format("2006-01-02"),
			"Student":      p.StudentID,
			"Description":  p.Description,
			"Amount (ILS)": strconv.FormatFloat(p.AmountILS, 'f', 2, 64),
			"Status":       string(p.Status),
			"Paid":         paid,
		})
	}

	return s.render(dataset, "Payments", "payments", format)
}

func (s *ExportService) render(dataset export.Dataset, title, baseName string, format ExportFormat) (*ExportResult, error) {
	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("%s-%s.csv", baseName, stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("%s-%s.pdf", baseName, stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}
}

func fileSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
