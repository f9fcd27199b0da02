package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, records []models.AttendanceRecord) error
	ListByClass(ctx context.Context, studioID, classID string, date *time.Time) ([]models.AttendanceDetail, error)
	ListByStudent(ctx context.Context, studioID, studentID string) ([]models.AttendanceRecord, error)
}

type enrollmentResolver interface {
	MapByClassStudents(ctx context.Context, studioID, classID string, studentIDs []string) (map[string]string, error)
}

// RecordAttendanceRequest is the bulk payload for one class session.
type RecordAttendanceRequest struct {
	SessionDate time.Time               `json:"session_date" validate:"required"`
	Marks       []models.AttendanceMark `json:"marks" validate:"required,min=1,dive"`
}

// RecordAttendanceResult reports what was written and what was skipped.
type RecordAttendanceResult struct {
	Recorded int      `json:"recorded"`
	Skipped  []string `json:"skipped,omitempty"`
}

// AttendanceService records and reads session attendance. Marks are keyed
// by enrollment, so a student without an active enrollment in the class
// cannot receive one.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments enrollmentResolver
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, enrollments enrollmentResolver, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// Record upserts attendance marks for a class session. Students without an
// enrollment in the class are skipped and reported back to the caller.
func (s *AttendanceService) Record(ctx context.Context, studioID, classID, recordedBy string, req RecordAttendanceRequest) (*RecordAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	studentIDs := make([]string, 0, len(req.Marks))
	for _, mark := range req.Marks {
		studentIDs = append(studentIDs, mark.StudentID)
	}

	enrollmentIDs, err := s.enrollments.MapByClassStudents(ctx, studioID, classID, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollments")
	}

	records := make([]models.AttendanceRecord, 0, len(req.Marks))
	var skipped []string
	for _, mark := range req.Marks {
		enrollmentID, ok := enrollmentIDs[mark.StudentID]
		if !ok {
			s.logger.Warn("skipping attendance mark without enrollment",
				zap.String("student_id", mark.StudentID), zap.String("class_id", classID))
			skipped = append(skipped, mark.StudentID)
			continue
		}
		records = append(records, models.AttendanceRecord{
			StudioID:     studioID,
			ClassID:      classID,
			EnrollmentID: enrollmentID,
			StudentID:    mark.StudentID,
			SessionDate:  req.SessionDate,
			Status:       mark.Status,
			Notes:        mark.Notes,
			RecordedBy:   recordedBy,
		})
	}

	if err := s.repo.Upsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	return &RecordAttendanceResult{Recorded: len(records), Skipped: skipped}, nil
}

// ForClass returns a class's attendance, optionally for a single date.
func (s *AttendanceService) ForClass(ctx context.Context, studioID, classID string, date *time.Time) ([]models.AttendanceDetail, error) {
	records, err := s.repo.ListByClass(ctx, studioID, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class attendance")
	}
	return records, nil
}

// ForStudent returns a student's attendance history.
func (s *AttendanceService) ForStudent(ctx context.Context, studioID, studentID string) ([]models.AttendanceRecord, error) {
	records, err := s.repo.ListByStudent(ctx, studioID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student attendance")
	}
	return records, nil
}
