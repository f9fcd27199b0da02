package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classly-app/classly-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, studio_id, student_id, class_id, status, payment_status,
        total_amount_due, start_date, notes, created_at, updated_at`

// FindByID returns an enrollment by its ID scoped to a studio.
func (r *EnrollmentRepository) FindByID(ctx context.Context, studioID, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 AND studio_id = $2`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, studioID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActive checks whether a non-cancelled enrollment exists for the
// (student, class) pair.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studioID, studentID, classID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments
        WHERE studio_id = $1 AND student_id = $2 AND class_id = $3 AND status <> $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studioID, studentID, classID, models.EnrollmentStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.StartDate.IsZero() {
		enrollment.StartDate = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.PaymentStatusPaid
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, studio_id, student_id, class_id, status, payment_status,
        total_amount_due, start_date, notes, created_at, updated_at)
        VALUES (:id, :studio_id, :student_id, :class_id, :status, :payment_status,
        :total_amount_due, :start_date, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus updates the lifecycle status of an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, studioID, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $3, updated_at = $4 WHERE id = $1 AND studio_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, studioID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// MarkPaid sets payment_status to PAID and promotes PENDING enrollments to
// ACTIVE. The promotion happens in the same statement so a concurrent
// cancellation cannot interleave between the two writes.
func (r *EnrollmentRepository) MarkPaid(ctx context.Context, id string) error {
	const query = `UPDATE enrollments
        SET payment_status = $2,
            status = CASE WHEN status = $3 THEN $4 ELSE status END,
            updated_at = $5
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusPaid,
		models.EnrollmentStatusPending, models.EnrollmentStatusActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark enrollment paid: %w", err)
	}
	return nil
}

// ListForStudent returns a student's non-cancelled enrollments with class
// and instructor context, newest first.
func (r *EnrollmentRepository) ListForStudent(ctx context.Context, studioID, studentID string) ([]models.StudentEnrollment, error) {
	const query = `SELECT e.id, e.studio_id, e.student_id, e.class_id, e.status, e.payment_status,
        e.total_amount_due, e.start_date, e.notes, e.created_at, e.updated_at,
        c.name AS class_name, c.day_of_week AS class_day, c.start_time AS class_start_time,
        COALESCE(i.full_name, '') AS instructor_name
        FROM enrollments e
        JOIN class_sessions c ON c.id = e.class_id
        LEFT JOIN users i ON i.id = c.instructor_id
        WHERE e.studio_id = $1 AND e.student_id = $2 AND e.status <> $3
        ORDER BY e.created_at DESC`
	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studioID, studentID, models.EnrollmentStatusCancelled); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// Roster returns the non-cancelled enrollments for a class with student
// contact info, ordered by registration time ascending.
func (r *EnrollmentRepository) Roster(ctx context.Context, studioID, classID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, e.status, e.payment_status,
        s.id AS student_id, s.full_name AS student_name, s.email AS student_email,
        s.phone_number AS student_phone, s.profile_image_url, e.created_at AS registered_at
        FROM enrollments e
        JOIN users s ON s.id = e.student_id
        WHERE e.studio_id = $1 AND e.class_id = $2 AND e.status <> $3
        ORDER BY e.created_at ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, studioID, classID, models.EnrollmentStatusCancelled); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return roster, nil
}

// MapByClassStudents resolves enrollment ids for students of a class.
// Used by attendance recording: a student without a row here has no
// enrollment and cannot receive an attendance mark.
func (r *EnrollmentRepository) MapByClassStudents(ctx context.Context, studioID, classID string, studentIDs []string) (map[string]string, error) {
	if len(studentIDs) == 0 {
		return map[string]string{}, nil
	}
	placeholders := make([]string, len(studentIDs))
	args := []interface{}{studioID, classID, models.EnrollmentStatusCancelled}
	for i, id := range studentIDs {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT student_id, id FROM enrollments
        WHERE studio_id = $1 AND class_id = $2 AND status <> $3 AND student_id IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("map enrollments: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string, len(studentIDs))
	for rows.Next() {
		var studentID, enrollmentID string
		if err := rows.Scan(&studentID, &enrollmentID); err != nil {
			return nil, fmt.Errorf("scan enrollment mapping: %w", err)
		}
		result[studentID] = enrollmentID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollment mapping: %w", err)
	}
	return result, nil
}

// CountOccupied recomputes the authoritative seat count for a class.
func (r *EnrollmentRepository) CountOccupied(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status IN ($2, $3)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID,
		models.EnrollmentStatusActive, models.EnrollmentStatusPending); err != nil {
		return 0, fmt.Errorf("count occupied seats: %w", err)
	}
	return count, nil
}
