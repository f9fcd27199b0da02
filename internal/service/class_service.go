package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type classRepository interface {
	FindByID(ctx context.Context, studioID, id string) (*models.ClassSession, error)
	List(ctx context.Context, studioID string, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	Create(ctx context.Context, class *models.ClassSession) error
	Update(ctx context.Context, class *models.ClassSession) error
	Deactivate(ctx context.Context, studioID, id string) error
}

// ClassRequest is the create/update payload for a class session.
type ClassRequest struct {
	InstructorID string  `json:"instructor_id" validate:"required"`
	BranchID     *string `json:"branch_id,omitempty"`
	RoomID       *string `json:"room_id,omitempty"`
	Name         string  `json:"name" validate:"required"`
	Description  string  `json:"description"`
	DayOfWeek    int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
	PriceILS     float64 `json:"price_ils" validate:"gte=0"`
	MaxCapacity  int     `json:"max_capacity" validate:"required,gt=0"`
}

// ClassService manages class session CRUD.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns class sessions with pagination metadata.
func (s *ClassService) List(ctx context.Context, studioID string, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, studioID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classes, pagination, nil
}

// Get returns a single class session.
func (s *ClassService) Get(ctx context.Context, studioID, id string) (*models.ClassSession, error) {
	class, err := s.repo.FindByID(ctx, studioID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create persists a new class session with a zero enrollment counter.
func (s *ClassService) Create(ctx context.Context, studioID string, req ClassRequest) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.ClassSession{
		StudioID:     studioID,
		BranchID:     req.BranchID,
		RoomID:       req.RoomID,
		InstructorID: req.InstructorID,
		Name:         req.Name,
		Description:  req.Description,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		PriceILS:     req.PriceILS,
		MaxCapacity:  req.MaxCapacity,
		Active:       true,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update rewrites a class session's mutable fields. The enrollment counter
// is never client-writable; it only moves through seat reservation and the
// reconciler.
func (s *ClassService) Update(ctx context.Context, studioID, id string, req ClassRequest) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, studioID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	class.BranchID = req.BranchID
	class.RoomID = req.RoomID
	class.InstructorID = req.InstructorID
	class.Name = req.Name
	class.Description = req.Description
	class.DayOfWeek = req.DayOfWeek
	class.StartTime = req.StartTime
	class.EndTime = req.EndTime
	class.PriceILS = req.PriceILS
	class.MaxCapacity = req.MaxCapacity

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Deactivate soft-deletes a class session. Existing enrollments keep their
// rows; new registrations are rejected once the class is inactive.
func (s *ClassService) Deactivate(ctx context.Context, studioID, id string) error {
	if _, err := s.repo.FindByID(ctx, studioID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.repo.Deactivate(ctx, studioID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate class")
	}
	return nil
}
