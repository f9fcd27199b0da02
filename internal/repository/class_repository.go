package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classly-app/classly-api/internal/models"
)

// ClassRepository handles persistence of class sessions, including the
// denormalized enrollment counter.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, studio_id, branch_id, room_id, instructor_id, name, description,
        day_of_week, start_time, end_time, price_ils, max_capacity, current_enrollment,
        is_active, created_at, updated_at`

// FindByID returns a class session scoped to a studio.
func (r *ClassRepository) FindByID(ctx context.Context, studioID, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE id = $1 AND studio_id = $2`, classColumns)
	var class models.ClassSession
	if err := r.db.GetContext(ctx, &class, query, id, studioID); err != nil {
		return nil, err
	}
	return &class, nil
}

// List returns class sessions for a studio filtered by the provided criteria.
func (r *ClassRepository) List(ctx context.Context, studioID string, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM class_sessions c
LEFT JOIN users i ON i.id = c.instructor_id`
	conditions := []string{"c.studio_id = $1"}
	args := []interface{}{studioID}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("c.branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("c.day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("c.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":        "c.name",
		"day_of_week": "c.day_of_week",
		"created_at":  "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.day_of_week"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.studio_id, c.branch_id, c.room_id, c.instructor_id, c.name,
        c.description, c.day_of_week, c.start_time, c.end_time, c.price_ils, c.max_capacity,
        c.current_enrollment, c.is_active, c.created_at, c.updated_at,
        COALESCE(i.full_name, '') AS instructor_name
        %s ORDER BY %s %s, c.start_time ASC LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// Create persists a new class session.
func (r *ClassRepository) Create(ctx context.Context, class *models.ClassSession) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO class_sessions (id, studio_id, branch_id, room_id, instructor_id, name,
        description, day_of_week, start_time, end_time, price_ils, max_capacity, current_enrollment,
        is_active, created_at, updated_at)
        VALUES (:id, :studio_id, :branch_id, :room_id, :instructor_id, :name, :description,
        :day_of_week, :start_time, :end_time, :price_ils, :max_capacity, :current_enrollment,
        :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a class session.
func (r *ClassRepository) Update(ctx context.Context, class *models.ClassSession) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_sessions SET branch_id = :branch_id, room_id = :room_id,
        instructor_id = :instructor_id, name = :name, description = :description,
        day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
        price_ils = :price_ils, max_capacity = :max_capacity, is_active = :is_active,
        updated_at = :updated_at
        WHERE id = :id AND studio_id = :studio_id`
	result, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update class %s: no rows affected", class.ID)
	}
	return nil
}

// Deactivate soft-deletes a class session.
func (r *ClassRepository) Deactivate(ctx context.Context, studioID, id string) error {
	const query = `UPDATE class_sessions SET is_active = FALSE, updated_at = $3
        WHERE id = $1 AND studio_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, studioID, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate class: %w", err)
	}
	return nil
}

// TryReserveSeat performs the capacity check and counter increment as a
// single conditional update. It returns false when the class is at
// capacity. The affected-row check is what makes concurrent registrations
// against the last seat safe.
func (r *ClassRepository) TryReserveSeat(ctx context.Context, studioID, classID string) (bool, error) {
	const query = `UPDATE class_sessions
        SET current_enrollment = current_enrollment + 1, updated_at = $3
        WHERE id = $1 AND studio_id = $2 AND current_enrollment < max_capacity`
	result, err := r.db.ExecContext(ctx, query, classID, studioID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat rows: %w", err)
	}
	return affected > 0, nil
}

// ReleaseSeat decrements the enrollment counter with a zero floor.
func (r *ClassRepository) ReleaseSeat(ctx context.Context, studioID, classID string) error {
	const query = `UPDATE class_sessions
        SET current_enrollment = GREATEST(current_enrollment - 1, 0), updated_at = $3
        WHERE id = $1 AND studio_id = $2`
	if _, err := r.db.ExecContext(ctx, query, classID, studioID, time.Now().UTC()); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

// SetEnrollmentCount overwrites the cached counter. Used by the fallback
// read-modify-write path and by the reconciler.
func (r *ClassRepository) SetEnrollmentCount(ctx context.Context, classID string, count int) error {
	const query = `UPDATE class_sessions SET current_enrollment = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, classID, count, time.Now().UTC()); err != nil {
		return fmt.Errorf("set enrollment count: %w", err)
	}
	return nil
}

// ListIDs returns all class ids for a studio, for reconciliation sweeps.
func (r *ClassRepository) ListIDs(ctx context.Context, studioID string) ([]string, error) {
	const query = `SELECT id FROM class_sessions WHERE studio_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studioID); err != nil {
		return nil, fmt.Errorf("list class ids: %w", err)
	}
	return ids, nil
}

// ListAllIDs returns every class id across studios. Counter sweeps run
// globally since the counter invariant is per row, not per tenant.
func (r *ClassRepository) ListAllIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM class_sessions`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list all class ids: %w", err)
	}
	return ids, nil
}

// InstructorOwns reports whether the instructor teaches the class.
func (r *ClassRepository) InstructorOwns(ctx context.Context, studioID, classID, instructorID string) (bool, error) {
	const query = `SELECT instructor_id FROM class_sessions WHERE id = $1 AND studio_id = $2`
	var ownerID string
	if err := r.db.GetContext(ctx, &ownerID, query, classID, studioID); err != nil {
		return false, err
	}
	return ownerID == instructorID, nil
}
