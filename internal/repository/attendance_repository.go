package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classly-app/classly-api/internal/models"
)

// AttendanceRepository handles persistence of attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes attendance records keyed on (enrollment_id, session_date),
// so re-recording a session overwrites the earlier marks.
func (r *AttendanceRepository) Upsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	const query = `INSERT INTO attendance (id, studio_id, class_id, enrollment_id, student_id,
        session_date, status, notes, recorded_by, recorded_at)
        VALUES (:id, :studio_id, :class_id, :enrollment_id, :student_id,
        :session_date, :status, :notes, :recorded_by, :recorded_at)
        ON CONFLICT (enrollment_id, session_date)
        DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes,
            recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at`
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].RecordedAt.IsZero() {
			records[i].RecordedAt = time.Now().UTC()
		}
	}
	if _, err := r.db.NamedExecContext(ctx, query, records); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// ListByClass returns attendance for a class, optionally for a single date,
// newest session first.
func (r *AttendanceRepository) ListByClass(ctx context.Context, studioID, classID string, date *time.Time) ([]models.AttendanceDetail, error) {
	query := `SELECT a.id, a.studio_id, a.class_id, a.enrollment_id, a.student_id,
        a.session_date, a.status, a.notes, a.recorded_by, a.recorded_at,
        s.full_name AS student_name, s.profile_image_url
        FROM attendance a
        JOIN users s ON s.id = a.student_id
        WHERE a.studio_id = $1 AND a.class_id = $2`
	args := []interface{}{studioID, classID}
	if date != nil {
		query += fmt.Sprintf(" AND a.session_date = $%d", len(args)+1)
		args = append(args, *date)
	}
	query += " ORDER BY a.session_date DESC"

	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list class attendance: %w", err)
	}
	return records, nil
}

// ListByStudent returns a student's attendance history, newest first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studioID, studentID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, studio_id, class_id, enrollment_id, student_id, session_date,
        status, notes, recorded_by, recorded_at
        FROM attendance WHERE studio_id = $1 AND student_id = $2
        ORDER BY session_date DESC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studioID, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

// PresenceRate computes the share of PRESENT or LATE marks for a studio
// since the given time. Used by the admin dashboard.
func (r *AttendanceRepository) PresenceRate(ctx context.Context, studioID string, since time.Time) (float64, error) {
	const query = `SELECT
        COALESCE(AVG(CASE WHEN status IN ($2, $3) THEN 1.0 ELSE 0.0 END), 0)
        FROM attendance WHERE studio_id = $1 AND session_date >= $4`
	var rate float64
	if err := r.db.GetContext(ctx, &rate, query, studioID,
		models.AttendancePresent, models.AttendanceLate, since); err != nil {
		return 0, fmt.Errorf("presence rate: %w", err)
	}
	return rate, nil
}
