package service

import (
	"context"
	"database/sql"
	"math/rand"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type studioRepository interface {
	FindByID(ctx context.Context, id string) (*models.Studio, error)
	FindByOwner(ctx context.Context, ownerID string) (*models.Studio, error)
	SerialNumberExists(ctx context.Context, serial string) (bool, error)
	Create(ctx context.Context, studio *models.Studio) error
	Update(ctx context.Context, studio *models.Studio) error
	ListBranches(ctx context.Context, studioID string) ([]models.Branch, error)
	CreateBranch(ctx context.Context, branch *models.Branch) error
	DeleteBranch(ctx context.Context, studioID, id string) error
	ListRooms(ctx context.Context, studioID, branchID string) ([]models.Room, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, studioID, id string) error
}

// studioLinker attaches a freshly created studio to its owner account.
type studioLinker interface {
	AssignStudio(ctx context.Context, userID, studioID string) error
}

// BranchRequest is the payload for creating a branch.
type BranchRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Address string `json:"address" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
}

// RoomRequest is the payload for creating a room.
type RoomRequest struct {
	BranchID string `json:"branch_id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=1000"`
}

// StudioRequest is the payload for creating or updating a studio. Updates
// rewrite the whole profile; the serial number and owner never change.
type StudioRequest struct {
	Name         string  `json:"name" validate:"required,min=2,max=120"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=500"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone,omitempty" validate:"omitempty,max=30"`
	WebsiteURL   *string `json:"website_url,omitempty" validate:"omitempty,url"`
}

// defaultBranchName is given to the branch created with every new studio.
const defaultBranchName = "Main Branch"

// serialAttempts bounds the retry loop for serial number allocation.
const serialAttempts = 5

// StudioService manages the tenant itself and its physical structure.
type StudioService struct {
	repo      studioRepository
	users     studioLinker
	validator *validator.Validate
	logger    *zap.Logger
}

func NewStudioService(repo studioRepository, users studioLinker, validate *validator.Validate, logger *zap.Logger) *StudioService {
	return &StudioService{repo: repo, users: users, validator: validate, logger: logger}
}

// Create provisions a studio for an admin who does not own one yet: the
// studio row, a default branch, and the owner's studio link. The serial
// number is a random six digit code regenerated on collision.
func (s *StudioService) Create(ctx context.Context, ownerID string, req StudioRequest) (*models.Studio, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if _, err := s.repo.FindByOwner(ctx, ownerID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already owns a studio")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check studio ownership")
	}

	serial, err := s.allocateSerial(ctx)
	if err != nil {
		return nil, err
	}

	studio := &models.Studio{
		ID:           uuid.NewString(),
		Name:         req.Name,
		SerialNumber: serial,
		OwnerID:      &ownerID,
		Description:  req.Description,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		WebsiteURL:   req.WebsiteURL,
	}
	if err := s.repo.Create(ctx, studio); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create studio")
	}

	branch := &models.Branch{ID: uuid.NewString(), StudioID: studio.ID, Name: defaultBranchName}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		// The studio stands without its default branch; the admin can add
		// one through the branch endpoint.
		s.logger.Warn("failed to create default branch",
			zap.String("studio_id", studio.ID), zap.Error(err))
	}

	if err := s.users.AssignStudio(ctx, ownerID, studio.ID); err != nil {
		s.logger.Warn("failed to link owner to studio",
			zap.String("studio_id", studio.ID), zap.String("owner_id", ownerID), zap.Error(err))
	}

	s.logger.Info("studio created",
		zap.String("studio_id", studio.ID), zap.String("serial_number", serial))
	return studio, nil
}

func (s *StudioService) allocateSerial(ctx context.Context) (string, error) {
	for i := 0; i < serialAttempts; i++ {
		serial := strconv.Itoa(100000 + rand.Intn(900000))
		exists, err := s.repo.SerialNumberExists(ctx, serial)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check serial number")
		}
		if !exists {
			return serial, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "failed to allocate studio serial number")
}

// Update rewrites the studio profile.
func (s *StudioService) Update(ctx context.Context, studioID string, req StudioRequest) (*models.Studio, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	studio, err := s.repo.FindByID(ctx, studioID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "studio not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load studio")
	}

	studio.Name = req.Name
	studio.Description = req.Description
	studio.ContactEmail = req.ContactEmail
	studio.ContactPhone = req.ContactPhone
	studio.WebsiteURL = req.WebsiteURL

	if err := s.repo.Update(ctx, studio); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "studio not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update studio")
	}
	return studio, nil
}

// Get returns the studio record.
func (s *StudioService) Get(ctx context.Context, studioID string) (*models.Studio, error) {
	studio, err := s.repo.FindByID(ctx, studioID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "studio not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load studio")
	}
	return studio, nil
}

// Branches lists the studio's branches.
func (s *StudioService) Branches(ctx context.Context, studioID string) ([]models.Branch, error) {
	branches, err := s.repo.ListBranches(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
	}
	return branches, nil
}

// CreateBranch adds a branch to the studio.
func (s *StudioService) CreateBranch(ctx context.Context, studioID string, req BranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	branch := &models.Branch{
		ID:       uuid.NewString(),
		StudioID: studioID,
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
	}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create branch")
	}
	return branch, nil
}

// DeleteBranch removes a branch.
func (s *StudioService) DeleteBranch(ctx context.Context, studioID, branchID string) error {
	if err := s.repo.DeleteBranch(ctx, studioID, branchID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete branch")
	}
	return nil
}

// Rooms lists rooms, optionally scoped to one branch.
func (s *StudioService) Rooms(ctx context.Context, studioID, branchID string) ([]models.Room, error) {
	rooms, err := s.repo.ListRooms(ctx, studioID, branchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// CreateRoom adds a room to a branch.
func (s *StudioService) CreateRoom(ctx context.Context, studioID string, req RoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	room := &models.Room{
		ID:       uuid.NewString(),
		StudioID: studioID,
		BranchID: req.BranchID,
		Name:     req.Name,
		Capacity: req.Capacity,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// DeleteRoom removes a room.
func (s *StudioService) DeleteRoom(ctx context.Context, studioID, roomID string) error {
	if err := s.repo.DeleteRoom(ctx, studioID, roomID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	return nil
}
