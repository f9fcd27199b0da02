package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type mockClassRepo struct {
	classes map[string]*models.ClassSession
	updated *models.ClassSession
}

func (m *mockClassRepo) FindByID(ctx context.Context, studioID, id string) (*models.ClassSession, error) {
	class, ok := m.classes[id]
	if !ok || class.StudioID != studioID {
		return nil, sql.ErrNoRows
	}
	copied := *class
	return &copied, nil
}

func (m *mockClassRepo) List(ctx context.Context, studioID string, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	return nil, len(m.classes), nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.ClassSession) error {
	if m.classes == nil {
		m.classes = make(map[string]*models.ClassSession)
	}
	class.ID = "class-new"
	m.classes[class.ID] = class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.ClassSession) error {
	m.updated = class
	m.classes[class.ID] = class
	return nil
}

func (m *mockClassRepo) Deactivate(ctx context.Context, studioID, id string) error {
	if class, ok := m.classes[id]; ok {
		class.Active = false
	}
	return nil
}

func validClassRequest() ClassRequest {
	return ClassRequest{
		InstructorID: "inst-1",
		Name:         "Ballet Beginners",
		DayOfWeek:    2,
		StartTime:    "17:00",
		EndTime:      "18:00",
		PriceILS:     250,
		MaxCapacity:  15,
	}
}

func TestClassCreateStartsEmptyAndActive(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, nil, nil)

	class, err := svc.Create(context.Background(), "studio-1", validClassRequest())
	require.NoError(t, err)

	assert.Equal(t, "studio-1", class.StudioID)
	assert.True(t, class.Active)
	assert.Equal(t, 0, class.CurrentEnrollment)
	assert.Equal(t, 15, class.MaxCapacity)
}

func TestClassCreateRejectsZeroCapacity(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, nil, nil)

	req := validClassRequest()
	req.MaxCapacity = 0
	_, err := svc.Create(context.Background(), "studio-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassUpdatePreservesEnrollmentCounter(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.ClassSession{
		"class-1": {ID: "class-1", StudioID: "studio-1", Name: "Old Name", CurrentEnrollment: 7, MaxCapacity: 10, Active: true},
	}}
	svc := NewClassService(repo, nil, nil)

	req := validClassRequest()
	req.Name = "New Name"
	req.MaxCapacity = 12
	class, err := svc.Update(context.Background(), "studio-1", "class-1", req)
	require.NoError(t, err)

	assert.Equal(t, "New Name", class.Name)
	assert.Equal(t, 12, class.MaxCapacity)
	assert.Equal(t, 7, class.CurrentEnrollment)
}

func TestClassUpdateUnknownClass(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, nil, nil)

	_, err := svc.Update(context.Background(), "studio-1", "class-missing", validClassRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassGetWrongStudioLooksMissing(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.ClassSession{
		"class-1": {ID: "class-1", StudioID: "studio-1", Active: true},
	}}
	svc := NewClassService(repo, nil, nil)

	_, err := svc.Get(context.Background(), "studio-2", "class-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassDeactivate(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.ClassSession{
		"class-1": {ID: "class-1", StudioID: "studio-1", Active: true},
	}}
	svc := NewClassService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "studio-1", "class-1"))
	assert.False(t, repo.classes["class-1"].Active)

	err := svc.Deactivate(context.Background(), "studio-1", "class-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
