package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[string]models.Enrollment
	activeKeys  map[string]bool
	created     []models.Enrollment
	markedPaid  []string
	occupied    int
	createErr   error
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, studioID, id string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[id]; ok && e.StudioID == studioID {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, studioID, studentID, classID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeKeys[studioID+studentID+classID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = append(m.created, *enrollment)
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, studioID, id string, status models.EnrollmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		m.enrollments[id] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) MarkPaid(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markedPaid = append(m.markedPaid, id)
	if e, ok := m.enrollments[id]; ok {
		e.PaymentStatus = models.PaymentStatusPaid
		if e.Status == models.EnrollmentStatusPending {
			e.Status = models.EnrollmentStatusActive
		}
		m.enrollments[id] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) ListForStudent(ctx context.Context, studioID, studentID string) ([]models.StudentEnrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.StudentEnrollment
	for _, e := range m.enrollments {
		if e.StudioID == studioID && e.StudentID == studentID && e.Status != models.EnrollmentStatusCancelled {
			list = append(list, models.StudentEnrollment{Enrollment: e})
		}
	}
	return list, nil
}

func (m *mockEnrollmentRepo) Roster(ctx context.Context, studioID, classID string) ([]models.RosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roster []models.RosterEntry
	for _, e := range m.enrollments {
		if e.StudioID == studioID && e.ClassID == classID {
			roster = append(roster, models.RosterEntry{EnrollmentID: e.ID, StudentID: e.StudentID, Status: e.Status})
		}
	}
	return roster, nil
}

func (m *mockEnrollmentRepo) CountOccupied(ctx context.Context, classID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupied, nil
}

// mockClassStore enforces capacity under a mutex the way the conditional
// UPDATE does in Postgres, so concurrent registrations race realistically.
type mockClassStore struct {
	mu         sync.Mutex
	class      models.ClassSession
	reserveErr error
	releaseErr error
	released   int
	setCounts  []int
}

func (m *mockClassStore) FindByID(ctx context.Context, studioID, id string) (*models.ClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.class.ID != id || m.class.StudioID != studioID {
		return nil, sql.ErrNoRows
	}
	snapshot := m.class
	return &snapshot, nil
}

func (m *mockClassStore) TryReserveSeat(ctx context.Context, studioID, classID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return false, m.reserveErr
	}
	if m.class.CurrentEnrollment >= m.class.MaxCapacity {
		return false, nil
	}
	m.class.CurrentEnrollment++
	return true, nil
}

func (m *mockClassStore) ReleaseSeat(ctx context.Context, studioID, classID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return m.releaseErr
	}
	if m.class.CurrentEnrollment > 0 {
		m.class.CurrentEnrollment--
	}
	m.released++
	return nil
}

func (m *mockClassStore) SetEnrollmentCount(ctx context.Context, classID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.class.CurrentEnrollment = count
	m.setCounts = append(m.setCounts, count)
	return nil
}

func (m *mockClassStore) InstructorOwns(ctx context.Context, studioID, classID, instructorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.class.ID != classID {
		return false, sql.ErrNoRows
	}
	return m.class.InstructorID == instructorID, nil
}

func (m *mockClassStore) enrollment() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.class.CurrentEnrollment
}

type mockPaymentLocator struct {
	mu        sync.Mutex
	payments  map[string]models.Payment
	succeeded []string
}

func (m *mockPaymentLocator) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[intentID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentLocator) MarkSucceeded(ctx context.Context, intentID string, chargeID *string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded = append(m.succeeded, intentID)
	return nil
}

type mockRecountScheduler struct {
	mu       sync.Mutex
	classIDs []string
}

func (m *mockRecountScheduler) EnqueueRecount(classID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classIDs = append(m.classIDs, classID)
}

func testClass(capacity, enrolled int) models.ClassSession {
	return models.ClassSession{
		ID:                "class-1",
		StudioID:          "studio-1",
		Name:              "Ballet Beginners",
		InstructorID:      "inst-1",
		MaxCapacity:       capacity,
		CurrentEnrollment: enrolled,
		PriceILS:          250,
		Active:            true,
	}
}

func newTestEnrollmentService(repo *mockEnrollmentRepo, classes *mockClassStore, payments *mockPaymentLocator) *EnrollmentService {
	if payments == nil {
		payments = &mockPaymentLocator{}
	}
	return NewEnrollmentService(repo, classes, payments, validator.New(), zap.NewNop())
}

func TestRegisterSucceedsAndSnapshotsPrice(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(10, 3)}
	svc := newTestEnrollmentService(repo, classes, nil)

	enrollment, snapshot, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.NoError(t, err)
	require.NotNil(t, enrollment)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Equal(t, 250.0, enrollment.TotalAmountDue)
	assert.Equal(t, 250.0, snapshot.PriceILS)
	assert.Equal(t, "Ballet Beginners", snapshot.ClassName)
	assert.Equal(t, 4, classes.enrollment())
}

func TestRegisterRejectsFullClass(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(5, 5)}
	svc := newTestEnrollmentService(repo, classes, nil)

	_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClassFull.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
	assert.Equal(t, 5, classes.enrollment())
}

func TestRegisterRejectsDuplicateWithoutCounterChange(t *testing.T) {
	repo := &mockEnrollmentRepo{activeKeys: map[string]bool{"studio-1" + "s1" + "class-1": true}}
	classes := &mockClassStore{class: testClass(10, 3)}
	svc := newTestEnrollmentService(repo, classes, nil)

	_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 3, classes.enrollment())
}

func TestRegisterUnknownClass(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(10, 0)}
	svc := newTestEnrollmentService(repo, classes, nil)

	_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterInactiveClassLooksMissing(t *testing.T) {
	class := testClass(10, 0)
	class.Active = false
	repo := &mockEnrollmentRepo{}
	svc := newTestEnrollmentService(repo, &mockClassStore{class: class}, nil)

	_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterWrongStudioLooksMissing(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newTestEnrollmentService(repo, &mockClassStore{class: testClass(10, 0)}, nil)

	_, _, err := svc.Register(context.Background(), "studio-2", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterPendingOccupiesSeat(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(2, 1)}
	svc := newTestEnrollmentService(repo, classes, nil)

	enrollment, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{
		StudentID: "s1", ClassID: "class-1",
		Status: models.EnrollmentStatusPending, PaymentStatus: models.PaymentStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, 2, classes.enrollment())

	// The PENDING enrollment holds the last seat.
	_, _, err = svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s2", ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClassFull.Code, appErrors.FromError(err).Code)
}

func TestRegisterConcurrentLastSeat(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(1, 0)}
	svc := newTestEnrollmentService(repo, classes, nil)

	const attempts = 10
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{
				StudentID: "student-" + string(rune('a'+n)), ClassID: "class-1",
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	success, full := 0, 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if appErrors.FromError(err).Code == appErrors.ErrClassFull.Code {
			full++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, attempts-1, full)
	assert.Equal(t, 1, classes.enrollment())
	assert.Len(t, repo.created, 1)
}

func TestRegisterReleasesSeatOnInsertFailure(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: errors.New("insert failed")}
	classes := &mockClassStore{class: testClass(5, 0)}
	svc := newTestEnrollmentService(repo, classes, nil)

	_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, 1, classes.released)
	assert.Equal(t, 0, classes.enrollment())
}

func TestRegisterFallsBackWhenReserveErrors(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(5, 2), reserveErr: errors.New("connection reset")}
	svc := newTestEnrollmentService(repo, classes, nil)

	enrollment, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.NoError(t, err)
	require.NotNil(t, enrollment)
	// Read-modify-write fallback: snapshot value plus one.
	assert.Equal(t, []int{3}, classes.setCounts)
}

func TestRegisterFallbackSchedulesRecount(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(5, 2), reserveErr: errors.New("connection reset")}
	recounts := &mockRecountScheduler{}
	svc := newTestEnrollmentService(repo, classes, nil)
	svc.SetRecountScheduler(recounts)

	_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.NoError(t, err)
	// The fallback write is racy, so the class gets queued for a recount.
	assert.Equal(t, []string{"class-1"}, recounts.classIDs)
}

func TestRegisterHappyPathSchedulesNoRecount(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(5, 2)}
	recounts := &mockRecountScheduler{}
	svc := newTestEnrollmentService(repo, classes, nil)
	svc.SetRecountScheduler(recounts)

	_, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "s1", ClassID: "class-1"})
	require.NoError(t, err)
	assert.Empty(t, recounts.classIDs)
}

func TestCancelSchedulesRecountWhenReleaseFails(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudioID: "studio-1", StudentID: "s1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
	}}
	classes := &mockClassStore{class: testClass(5, 3), releaseErr: errors.New("connection reset")}
	recounts := &mockRecountScheduler{}
	svc := newTestEnrollmentService(repo, classes, nil)
	svc.SetRecountScheduler(recounts)

	// The cancellation stands even though the counter could not be released.
	require.NoError(t, svc.Cancel(context.Background(), "studio-1", "e1", ""))
	assert.Equal(t, models.EnrollmentStatusCancelled, repo.enrollments["e1"].Status)
	assert.Equal(t, []string{"class-1"}, recounts.classIDs)
}

func TestCancelReleasesSeatOnce(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudioID: "studio-1", StudentID: "s1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
	}}
	classes := &mockClassStore{class: testClass(5, 3)}
	svc := newTestEnrollmentService(repo, classes, nil)

	require.NoError(t, svc.Cancel(context.Background(), "studio-1", "e1", ""))
	assert.Equal(t, 2, classes.enrollment())

	// Second cancel is a no-op; the counter must not drop again.
	require.NoError(t, svc.Cancel(context.Background(), "studio-1", "e1", ""))
	assert.Equal(t, 2, classes.enrollment())
	assert.Equal(t, 1, classes.released)
}

func TestCancelMissingEnrollment(t *testing.T) {
	svc := newTestEnrollmentService(&mockEnrollmentRepo{}, &mockClassStore{class: testClass(5, 0)}, nil)

	err := svc.Cancel(context.Background(), "studio-1", "missing", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCancelOtherStudentsEnrollmentForbidden(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudioID: "studio-1", StudentID: "s1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
	}}
	classes := &mockClassStore{class: testClass(5, 1)}
	svc := newTestEnrollmentService(repo, classes, nil)

	err := svc.Cancel(context.Background(), "studio-1", "e1", "s2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, classes.enrollment())
}

func TestCancelledSeatIsReusable(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	classes := &mockClassStore{class: testClass(2, 0)}
	svc := newTestEnrollmentService(repo, classes, nil)

	a, _, err := svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "sA", ClassID: "class-1"})
	require.NoError(t, err)
	_, _, err = svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "sB", ClassID: "class-1"})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "sC", ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClassFull.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Cancel(context.Background(), "studio-1", a.ID, ""))

	_, _, err = svc.Register(context.Background(), "studio-1", RegisterRequest{StudentID: "sC", ClassID: "class-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, classes.enrollment())
}

func TestReconcilePaymentPromotesPending(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudioID: "studio-1", StudentID: "s1", ClassID: "class-1", Status: models.EnrollmentStatusPending, PaymentStatus: models.PaymentStatusPending},
	}}
	enrollmentID := "e1"
	payments := &mockPaymentLocator{payments: map[string]models.Payment{
		"pi_123": {ID: "p1", StudioID: "studio-1", EnrollmentID: &enrollmentID, StripePaymentIntentID: "pi_123"},
	}}
	classes := &mockClassStore{class: testClass(5, 1)}
	svc := newTestEnrollmentService(repo, classes, payments)

	require.NoError(t, svc.ReconcilePayment(context.Background(), "pi_123", nil))
	assert.Equal(t, models.EnrollmentStatusActive, repo.enrollments["e1"].Status)
	assert.Equal(t, models.PaymentStatusPaid, repo.enrollments["e1"].PaymentStatus)
	// The seat was counted at registration; promotion must not touch it.
	assert.Equal(t, 1, classes.enrollment())

	// Replayed webhook: same outcome, still one seat.
	require.NoError(t, svc.ReconcilePayment(context.Background(), "pi_123", nil))
	assert.Equal(t, models.EnrollmentStatusActive, repo.enrollments["e1"].Status)
	assert.Equal(t, 1, classes.enrollment())
}

func TestReconcilePaymentUnknownIntentIsAcknowledged(t *testing.T) {
	payments := &mockPaymentLocator{}
	svc := newTestEnrollmentService(&mockEnrollmentRepo{}, &mockClassStore{class: testClass(5, 0)}, payments)

	// No local row for the intent. Returning an error would make the
	// provider redeliver the event forever, so this must succeed quietly.
	require.NoError(t, svc.ReconcilePayment(context.Background(), "pi_missing", nil))
	assert.Empty(t, payments.succeeded)
}

func TestRecountClass(t *testing.T) {
	repo := &mockEnrollmentRepo{occupied: 7}
	classes := &mockClassStore{class: testClass(10, 3)}
	svc := newTestEnrollmentService(repo, classes, nil)

	require.NoError(t, svc.RecountClass(context.Background(), "class-1"))
	assert.Equal(t, 7, classes.enrollment())
}

func TestVerifyInstructorClass(t *testing.T) {
	classes := &mockClassStore{class: testClass(10, 0)}
	svc := newTestEnrollmentService(&mockEnrollmentRepo{}, classes, nil)

	owns, err := svc.VerifyInstructorClass(context.Background(), "studio-1", "class-1", "inst-1")
	require.NoError(t, err)
	assert.True(t, owns)

	owns, err = svc.VerifyInstructorClass(context.Background(), "studio-1", "class-1", "inst-2")
	require.NoError(t, err)
	assert.False(t, owns)
}
