package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/classly-app/classly-api/internal/models"
)

// UserRepository handles persistence of platform accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, studio_id, email, full_name, phone_number, profile_image_url,
        password_hash, role, active, created_at, updated_at`

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindStudent returns a student account scoped to a studio.
func (r *UserRepository) FindStudent(ctx context.Context, studioID, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND studio_id = $2 AND role = $3`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id, studioID, models.RoleStudent); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListStudents returns student accounts for a studio.
func (r *UserRepository) ListStudents(ctx context.Context, studioID string, filter models.StudentFilter) ([]models.User, int, error) {
	base := `FROM users`
	conditions := []string{"studio_id = $1", "role = $2"}
	args := []interface{}{studioID, models.RoleStudent}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"email":      "email",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "full_name"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		userColumns, base+clause, orderBy, order, size, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return users, total, nil
}

// CountStudents returns the number of student accounts in a studio.
func (r *UserRepository) CountStudents(ctx context.Context, studioID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE studio_id = $1 AND role = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studioID, models.RoleStudent); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// ListInstructors returns the studio's instructor accounts.
func (r *UserRepository) ListInstructors(ctx context.Context, studioID string) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE studio_id = $1 AND role = $2 ORDER BY full_name ASC`, userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, studioID, models.RoleInstructor); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return users, nil
}

// FindInstructor returns an instructor account scoped to a studio.
func (r *UserRepository) FindInstructor(ctx context.Context, studioID, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND studio_id = $2 AND role = $3`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id, studioID, models.RoleInstructor); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeactivateInstructor flags an instructor account inactive. The role
// filter keeps the statement from ever touching other account types.
func (r *UserRepository) DeactivateInstructor(ctx context.Context, studioID, id string) error {
	const query = `UPDATE users SET active = FALSE, updated_at = $4
        WHERE id = $1 AND studio_id = $2 AND role = $3`
	result, err := r.db.ExecContext(ctx, query, id, studioID, models.RoleInstructor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate instructor: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignStudio links a user to a studio. Used when an admin creates their
// studio after signing up.
func (r *UserRepository) AssignStudio(ctx context.Context, userID, studioID string) error {
	const query = `UPDATE users SET studio_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, studioID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign studio: %w", err)
	}
	return nil
}

// Promote updates a user's role and, when provided, studio assignment.
// Used when an invitation is accepted.
func (r *UserRepository) Promote(ctx context.Context, userID string, role models.UserRole, studioID *string) error {
	if studioID != nil {
		const query = `UPDATE users SET role = $2, studio_id = $3, updated_at = $4 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, userID, role, *studioID, time.Now().UTC()); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		return nil
	}
	const query = `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	return nil
}
