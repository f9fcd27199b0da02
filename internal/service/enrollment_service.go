package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, studioID, id string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, studioID, studentID, classID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, studioID, id string, status models.EnrollmentStatus) error
	MarkPaid(ctx context.Context, id string) error
	ListForStudent(ctx context.Context, studioID, studentID string) ([]models.StudentEnrollment, error)
	Roster(ctx context.Context, studioID, classID string) ([]models.RosterEntry, error)
	CountOccupied(ctx context.Context, classID string) (int, error)
}

type classCapacityStore interface {
	FindByID(ctx context.Context, studioID, id string) (*models.ClassSession, error)
	TryReserveSeat(ctx context.Context, studioID, classID string) (bool, error)
	ReleaseSeat(ctx context.Context, studioID, classID string) error
	SetEnrollmentCount(ctx context.Context, classID string, count int) error
	InstructorOwns(ctx context.Context, studioID, classID, instructorID string) (bool, error)
}

type paymentLocator interface {
	FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	MarkSucceeded(ctx context.Context, intentID string, chargeID *string, paidAt time.Time) error
}

// recountScheduler schedules an asynchronous counter rebuild for one class.
type recountScheduler interface {
	EnqueueRecount(classID string)
}

// RegisterRequest describes an enrollment registration.
type RegisterRequest struct {
	StudentID     string                  `json:"student_id" validate:"required"`
	ClassID       string                  `json:"class_id" validate:"required"`
	Status        models.EnrollmentStatus `json:"status" validate:"omitempty,oneof=ACTIVE PENDING"`
	PaymentStatus models.PaymentStatus    `json:"payment_status" validate:"omitempty,oneof=PAID PENDING OVERDUE"`
	Notes         *string                 `json:"notes,omitempty"`
}

// EnrollmentService is the enrollment engine: it owns registration,
// capacity accounting, cancellation and payment reconciliation.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   classCapacityStore
	payments  paymentLocator
	recounts  recountScheduler
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, classes classCapacityStore, payments paymentLocator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, classes: classes, payments: payments, validator: validate, logger: logger}
}

// SetRecountScheduler attaches the reconciler once it exists. The two
// depend on each other, so the wiring happens after construction. Without
// a scheduler, drifted counters wait for the periodic sweep.
func (s *EnrollmentService) SetRecountScheduler(r recountScheduler) {
	s.recounts = r
}

// Register enrolls a student into a class session. The capacity check and
// counter increment happen as one conditional update so two concurrent
// registrations cannot both take the last seat. The amount due is
// snapshotted from the class price at registration time.
func (s *EnrollmentService) Register(ctx context.Context, studioID string, req RegisterRequest) (*models.Enrollment, *models.PriceSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	status := req.Status
	if status == "" {
		status = models.EnrollmentStatusActive
	}
	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPaid
	}

	class, err := s.classes.FindByID(ctx, studioID, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !class.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	// Cheap pre-check for fast failure; TryReserveSeat is authoritative.
	if status.OccupiesSeat() && class.CurrentEnrollment >= class.MaxCapacity {
		return nil, nil, appErrors.Clone(appErrors.ErrClassFull, "")
	}

	exists, err := s.repo.ExistsActive(ctx, studioID, req.StudentID, req.ClassID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	}

	seatReserved := false
	if status.OccupiesSeat() {
		reserved, err := s.classes.TryReserveSeat(ctx, studioID, req.ClassID)
		if err != nil {
			// Counter sync failure: fall back to read-modify-write rather
			// than failing the registration. This widens the race window,
			// so a recount is scheduled right after.
			s.logger.Warn("seat reservation failed, applying read-modify-write fallback",
				zap.String("class_id", req.ClassID), zap.Error(err))
			if fbErr := s.classes.SetEnrollmentCount(ctx, req.ClassID, class.CurrentEnrollment+1); fbErr != nil {
				return nil, nil, appErrors.Wrap(fbErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment counter")
			}
			if s.recounts != nil {
				s.recounts.EnqueueRecount(req.ClassID)
			}
		} else if !reserved {
			return nil, nil, appErrors.Clone(appErrors.ErrClassFull, "")
		} else {
			seatReserved = true
		}
	}

	enrollment := &models.Enrollment{
		StudioID:       studioID,
		StudentID:      req.StudentID,
		ClassID:        req.ClassID,
		Status:         status,
		PaymentStatus:  paymentStatus,
		TotalAmountDue: class.PriceILS,
		StartDate:      time.Now().UTC(),
		Notes:          req.Notes,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if seatReserved {
			if relErr := s.classes.ReleaseSeat(ctx, studioID, req.ClassID); relErr != nil {
				s.logger.Error("failed to release seat after insert failure",
					zap.String("class_id", req.ClassID), zap.Error(relErr))
			}
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	snapshot := &models.PriceSnapshot{PriceILS: class.PriceILS, ClassName: class.Name}
	return enrollment, snapshot, nil
}

// Cancel marks an enrollment CANCELLED and releases its seat. Cancelling
// an already-cancelled enrollment is an idempotent no-op. When
// actorStudentID is non-empty the enrollment must belong to that student.
func (s *EnrollmentService) Cancel(ctx context.Context, studioID, enrollmentID, actorStudentID string) error {
	enrollment, err := s.repo.FindByID(ctx, studioID, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if actorStudentID != "" && enrollment.StudentID != actorStudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}

	if enrollment.Status == models.EnrollmentStatusCancelled {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, studioID, enrollmentID, models.EnrollmentStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}

	if enrollment.Status.OccupiesSeat() {
		if err := s.classes.ReleaseSeat(ctx, studioID, enrollment.ClassID); err != nil {
			// Best effort: the cancellation itself stands, the counter
			// drifts until the reconciler recounts.
			s.logger.Warn("failed to release seat on cancellation",
				zap.String("class_id", enrollment.ClassID), zap.Error(err))
			if s.recounts != nil {
				s.recounts.EnqueueRecount(enrollment.ClassID)
			}
		}
	}
	return nil
}

// ListForStudent returns a student's non-cancelled enrollments with class
// and instructor context, newest first.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studioID, studentID string) ([]models.StudentEnrollment, error) {
	enrollments, err := s.repo.ListForStudent(ctx, studioID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Roster returns the class roster ordered by registration time.
func (s *EnrollmentService) Roster(ctx context.Context, studioID, classID string) ([]models.RosterEntry, error) {
	roster, err := s.repo.Roster(ctx, studioID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class roster")
	}
	return roster, nil
}

// VerifyInstructorClass reports whether the instructor teaches the class.
func (s *EnrollmentService) VerifyInstructorClass(ctx context.Context, studioID, classID, instructorID string) (bool, error) {
	owns, err := s.classes.InstructorOwns(ctx, studioID, classID, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify class ownership")
	}
	return owns, nil
}

// ReconcilePayment applies a confirmed payment identified by its intent
// reference: the payment row is marked succeeded, the enrollment payment
// status becomes PAID and a PENDING enrollment is promoted to ACTIVE.
// This is the only path by which a PENDING enrollment becomes ACTIVE.
// The seat was already counted at registration, so the counter is
// untouched. Safe to call more than once. An intent with no local payment
// row is logged and acknowledged so the provider stops retrying it.
func (s *EnrollmentService) ReconcilePayment(ctx context.Context, paymentIntentID string, chargeID *string) error {
	payment, err := s.payments.FindByIntentID(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// An intent we never recorded, most likely created outside this
			// system. Acknowledge it anyway or the provider redelivers the
			// event forever.
			s.logger.Warn("webhook for unknown payment intent, acknowledging",
				zap.String("payment_intent_id", paymentIntentID))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	if err := s.payments.MarkSucceeded(ctx, paymentIntentID, chargeID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment record")
	}

	if payment.EnrollmentID != nil {
		if err := s.repo.MarkPaid(ctx, *payment.EnrollmentID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment payment status")
		}
	}

	s.logger.Info("payment reconciled",
		zap.String("payment_intent_id", paymentIntentID),
		zap.Stringp("enrollment_id", payment.EnrollmentID))
	return nil
}

// RecountClass rebuilds the cached enrollment counter from authoritative
// enrollment rows. Called by the reconciler.
func (s *EnrollmentService) RecountClass(ctx context.Context, classID string) error {
	count, err := s.repo.CountOccupied(ctx, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recount enrollments")
	}
	if err := s.classes.SetEnrollmentCount(ctx, classID, count); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store recounted enrollments")
	}
	return nil
}
