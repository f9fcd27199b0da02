package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classly-app/classly-api/internal/models"
)

// StudioRepository handles studios and their branches and rooms.
type StudioRepository struct {
	db *sqlx.DB
}

// NewStudioRepository constructs the repository.
func NewStudioRepository(db *sqlx.DB) *StudioRepository {
	return &StudioRepository{db: db}
}

const studioColumns = `id, name, serial_number, owner_id, description,
        contact_email, contact_phone, website_url, created_at, updated_at`

// FindByID returns a studio by id.
func (r *StudioRepository) FindByID(ctx context.Context, id string) (*models.Studio, error) {
	query := fmt.Sprintf(`SELECT %s FROM studios WHERE id = $1`, studioColumns)
	var studio models.Studio
	if err := r.db.GetContext(ctx, &studio, query, id); err != nil {
		return nil, err
	}
	return &studio, nil
}

// FindByOwner returns the studio owned by the given admin.
func (r *StudioRepository) FindByOwner(ctx context.Context, ownerID string) (*models.Studio, error) {
	query := fmt.Sprintf(`SELECT %s FROM studios WHERE owner_id = $1`, studioColumns)
	var studio models.Studio
	if err := r.db.GetContext(ctx, &studio, query, ownerID); err != nil {
		return nil, err
	}
	return &studio, nil
}

// SerialNumberExists reports whether a studio already holds the serial.
func (r *StudioRepository) SerialNumberExists(ctx context.Context, serial string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM studios WHERE serial_number = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, serial); err != nil {
		return false, fmt.Errorf("check serial number: %w", err)
	}
	return exists, nil
}

// Create persists a new studio.
func (r *StudioRepository) Create(ctx context.Context, studio *models.Studio) error {
	if studio.ID == "" {
		studio.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	studio.CreatedAt = now
	studio.UpdatedAt = now
	const query = `INSERT INTO studios (id, name, serial_number, owner_id, description,
            contact_email, contact_phone, website_url, created_at, updated_at)
        VALUES (:id, :name, :serial_number, :owner_id, :description,
            :contact_email, :contact_phone, :website_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, studio); err != nil {
		return fmt.Errorf("create studio: %w", err)
	}
	return nil
}

// Update rewrites the studio profile. The serial number and owner are
// immutable after creation.
func (r *StudioRepository) Update(ctx context.Context, studio *models.Studio) error {
	studio.UpdatedAt = time.Now().UTC()
	const query = `UPDATE studios SET name = :name, description = :description,
            contact_email = :contact_email, contact_phone = :contact_phone,
            website_url = :website_url, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, studio)
	if err != nil {
		return fmt.Errorf("update studio: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Summary returns the minimal studio view used by invitation validation.
func (r *StudioRepository) Summary(ctx context.Context, id string) (*models.StudioSummary, error) {
	const query = `SELECT name, serial_number FROM studios WHERE id = $1`
	var summary models.StudioSummary
	if err := r.db.GetContext(ctx, &summary, query, id); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListBranches returns a studio's branches.
func (r *StudioRepository) ListBranches(ctx context.Context, studioID string) ([]models.Branch, error) {
	const query = `SELECT id, studio_id, name, address, phone, created_at, updated_at
        FROM branches WHERE studio_id = $1 ORDER BY name ASC`
	var branches []models.Branch
	if err := r.db.SelectContext(ctx, &branches, query, studioID); err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

// CreateBranch persists a new branch.
func (r *StudioRepository) CreateBranch(ctx context.Context, branch *models.Branch) error {
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	branch.CreatedAt = now
	branch.UpdatedAt = now
	const query = `INSERT INTO branches (id, studio_id, name, address, phone, created_at, updated_at)
        VALUES (:id, :studio_id, :name, :address, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// DeleteBranch removes a branch.
func (r *StudioRepository) DeleteBranch(ctx context.Context, studioID, id string) error {
	const query = `DELETE FROM branches WHERE id = $1 AND studio_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, studioID); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}

// ListRooms returns rooms, optionally filtered to one branch.
func (r *StudioRepository) ListRooms(ctx context.Context, studioID, branchID string) ([]models.Room, error) {
	query := `SELECT id, studio_id, branch_id, name, capacity, created_at, updated_at
        FROM rooms WHERE studio_id = $1`
	args := []interface{}{studioID}
	if branchID != "" {
		query += " AND branch_id = $2"
		args = append(args, branchID)
	}
	query += " ORDER BY name ASC"
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// CreateRoom persists a new room.
func (r *StudioRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now
	const query = `INSERT INTO rooms (id, studio_id, branch_id, name, capacity, created_at, updated_at)
        VALUES (:id, :studio_id, :branch_id, :name, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// DeleteRoom removes a room.
func (r *StudioRepository) DeleteRoom(ctx context.Context, studioID, id string) error {
	const query = `DELETE FROM rooms WHERE id = $1 AND studio_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, studioID); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// CountActiveClasses returns the number of active class sessions.
func (r *StudioRepository) CountActiveClasses(ctx context.Context, studioID string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_sessions WHERE studio_id = $1 AND is_active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studioID); err != nil {
		return 0, fmt.Errorf("count active classes: %w", err)
	}
	return count, nil
}
