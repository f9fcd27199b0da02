package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type mockStudioRepo struct {
	studios      map[string]models.Studio
	branches     []models.Branch
	serialChecks int
	takenSerials int // serial lookups answered "taken" before allocation succeeds
	updated      []models.Studio
}

func (m *mockStudioRepo) FindByID(ctx context.Context, id string) (*models.Studio, error) {
	if s, ok := m.studios[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudioRepo) FindByOwner(ctx context.Context, ownerID string) (*models.Studio, error) {
	for _, s := range m.studios {
		if s.OwnerID != nil && *s.OwnerID == ownerID {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudioRepo) SerialNumberExists(ctx context.Context, serial string) (bool, error) {
	m.serialChecks++
	return m.serialChecks <= m.takenSerials, nil
}

func (m *mockStudioRepo) Create(ctx context.Context, studio *models.Studio) error {
	if m.studios == nil {
		m.studios = make(map[string]models.Studio)
	}
	m.studios[studio.ID] = *studio
	return nil
}

func (m *mockStudioRepo) Update(ctx context.Context, studio *models.Studio) error {
	if _, ok := m.studios[studio.ID]; !ok {
		return sql.ErrNoRows
	}
	m.studios[studio.ID] = *studio
	m.updated = append(m.updated, *studio)
	return nil
}

func (m *mockStudioRepo) ListBranches(ctx context.Context, studioID string) ([]models.Branch, error) {
	var list []models.Branch
	for _, b := range m.branches {
		if b.StudioID == studioID {
			list = append(list, b)
		}
	}
	return list, nil
}

func (m *mockStudioRepo) CreateBranch(ctx context.Context, branch *models.Branch) error {
	m.branches = append(m.branches, *branch)
	return nil
}

func (m *mockStudioRepo) DeleteBranch(ctx context.Context, studioID, id string) error {
	for i, b := range m.branches {
		if b.ID == id && b.StudioID == studioID {
			m.branches = append(m.branches[:i], m.branches[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockStudioRepo) ListRooms(ctx context.Context, studioID, branchID string) ([]models.Room, error) {
	return nil, nil
}

func (m *mockStudioRepo) CreateRoom(ctx context.Context, room *models.Room) error {
	return nil
}

func (m *mockStudioRepo) DeleteRoom(ctx context.Context, studioID, id string) error {
	return nil
}

type mockStudioLinker struct {
	linked map[string]string // user id -> studio id
}

func (m *mockStudioLinker) AssignStudio(ctx context.Context, userID, studioID string) error {
	if m.linked == nil {
		m.linked = make(map[string]string)
	}
	m.linked[userID] = studioID
	return nil
}

func newTestStudioService(repo *mockStudioRepo, users *mockStudioLinker) *StudioService {
	if users == nil {
		users = &mockStudioLinker{}
	}
	return NewStudioService(repo, users, validator.New(), zap.NewNop())
}

func TestStudioCreateProvisionsBranchAndOwnerLink(t *testing.T) {
	repo := &mockStudioRepo{}
	users := &mockStudioLinker{}
	svc := newTestStudioService(repo, users)

	studio, err := svc.Create(context.Background(), "admin-1", StudioRequest{Name: "Studio Adi"})
	require.NoError(t, err)
	require.NotNil(t, studio)
	assert.Equal(t, "Studio Adi", studio.Name)
	assert.Len(t, studio.SerialNumber, 6)
	require.NotNil(t, studio.OwnerID)
	assert.Equal(t, "admin-1", *studio.OwnerID)

	// The default branch and the owner link come with the studio.
	require.Len(t, repo.branches, 1)
	assert.Equal(t, "Main Branch", repo.branches[0].Name)
	assert.Equal(t, studio.ID, repo.branches[0].StudioID)
	assert.Equal(t, studio.ID, users.linked["admin-1"])
}

func TestStudioCreateRejectsSecondStudio(t *testing.T) {
	owner := "admin-1"
	repo := &mockStudioRepo{studios: map[string]models.Studio{
		"studio-1": {ID: "studio-1", Name: "Studio Adi", OwnerID: &owner},
	}}
	svc := newTestStudioService(repo, nil)

	_, err := svc.Create(context.Background(), "admin-1", StudioRequest{Name: "Second Studio"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.branches)
}

func TestStudioCreateRetriesOnSerialCollision(t *testing.T) {
	repo := &mockStudioRepo{takenSerials: 2}
	svc := newTestStudioService(repo, nil)

	studio, err := svc.Create(context.Background(), "admin-1", StudioRequest{Name: "Studio Adi"})
	require.NoError(t, err)
	assert.Len(t, studio.SerialNumber, 6)
	assert.Equal(t, 3, repo.serialChecks)
}

func TestStudioCreateGivesUpWhenSerialsExhausted(t *testing.T) {
	repo := &mockStudioRepo{takenSerials: serialAttempts}
	svc := newTestStudioService(repo, nil)

	_, err := svc.Create(context.Background(), "admin-1", StudioRequest{Name: "Studio Adi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.studios)
}

func TestStudioCreateRejectsShortName(t *testing.T) {
	svc := newTestStudioService(&mockStudioRepo{}, nil)

	_, err := svc.Create(context.Background(), "admin-1", StudioRequest{Name: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudioUpdateKeepsSerialAndOwner(t *testing.T) {
	owner := "admin-1"
	repo := &mockStudioRepo{studios: map[string]models.Studio{
		"studio-1": {ID: "studio-1", Name: "Studio Adi", SerialNumber: "123456", OwnerID: &owner},
	}}
	svc := newTestStudioService(repo, nil)

	desc := "Ballet and contemporary"
	studio, err := svc.Update(context.Background(), "studio-1", StudioRequest{Name: "Studio Adi North", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Studio Adi North", studio.Name)
	assert.Equal(t, "Ballet and contemporary", *studio.Description)
	assert.Equal(t, "123456", studio.SerialNumber)
	assert.Equal(t, "admin-1", *studio.OwnerID)
}

func TestStudioUpdateUnknownStudio(t *testing.T) {
	svc := newTestStudioService(&mockStudioRepo{}, nil)

	_, err := svc.Update(context.Background(), "missing", StudioRequest{Name: "Studio Adi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
