package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type studentRepository interface {
	FindStudent(ctx context.Context, studioID, id string) (*models.User, error)
	ListStudents(ctx context.Context, studioID string, filter models.StudentFilter) ([]models.User, int, error)
}

type studentEnrollmentLister interface {
	ListForStudent(ctx context.Context, studioID, studentID string) ([]models.StudentEnrollment, error)
}

// StudentProfile is a student account joined with their enrollment history.
type StudentProfile struct {
	Student     *models.User               `json:"student"`
	Enrollments []models.StudentEnrollment `json:"enrollments"`
}

// StudentService serves the admin-facing student directory.
type StudentService struct {
	repo        studentRepository
	enrollments studentEnrollmentLister
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewStudentService(repo studentRepository, enrollments studentEnrollmentLister, validate *validator.Validate, logger *zap.Logger) *StudentService {
	return &StudentService{
		repo:        repo,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// List returns students in the studio matching the filter, with the total
// count for pagination.
func (s *StudentService) List(ctx context.Context, studioID string, filter models.StudentFilter) ([]models.User, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	students, total, err := s.repo.ListStudents(ctx, studioID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Profile returns one student with their enrollment history.
func (s *StudentService) Profile(ctx context.Context, studioID, studentID string) (*StudentProfile, error) {
	student, err := s.repo.FindStudent(ctx, studioID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollments, err := s.enrollments.ListForStudent(ctx, studioID, studentID)
	if err != nil {
		return nil, err
	}

	return &StudentProfile{Student: student, Enrollments: enrollments}, nil
}
