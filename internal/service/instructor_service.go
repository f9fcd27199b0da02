package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type instructorRepository interface {
	ListInstructors(ctx context.Context, studioID string) ([]models.User, error)
	FindInstructor(ctx context.Context, studioID, id string) (*models.User, error)
	DeactivateInstructor(ctx context.Context, studioID, id string) error
}

// InstructorService serves the studio's instructor roster.
type InstructorService struct {
	repo   instructorRepository
	logger *zap.Logger
}

func NewInstructorService(repo instructorRepository, logger *zap.Logger) *InstructorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, logger: logger}
}

// List returns the studio's instructors.
func (s *InstructorService) List(ctx context.Context, studioID string) ([]models.User, error) {
	instructors, err := s.repo.ListInstructors(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, nil
}

// Get returns one instructor.
func (s *InstructorService) Get(ctx context.Context, studioID, instructorID string) (*models.User, error) {
	instructor, err := s.repo.FindInstructor(ctx, studioID, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// Deactivate flags an instructor inactive. Their account and class history
// remain, they just can no longer sign in.
func (s *InstructorService) Deactivate(ctx context.Context, studioID, instructorID string) error {
	if err := s.repo.DeactivateInstructor(ctx, studioID, instructorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate instructor")
	}
	s.logger.Info("instructor deactivated",
		zap.String("studio_id", studioID), zap.String("instructor_id", instructorID))
	return nil
}
