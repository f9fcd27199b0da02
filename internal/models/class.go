package models

import "time"

// ClassSession is a scheduled recurring class. CurrentEnrollment is a
// denormalized count of non-cancelled enrollments kept for fast capacity
// checks; the reconciler periodically rebuilds it from enrollment rows.
type ClassSession struct {
	ID                string    `db:"id" json:"id"`
	StudioID          string    `db:"studio_id" json:"studio_id"`
	BranchID          *string   `db:"branch_id" json:"branch_id,omitempty"`
	RoomID            *string   `db:"room_id" json:"room_id,omitempty"`
	InstructorID      string    `db:"instructor_id" json:"instructor_id"`
	Name              string    `db:"name" json:"name"`
	Description       string    `db:"description" json:"description"`
	DayOfWeek         int       `db:"day_of_week" json:"day_of_week"`
	StartTime         string    `db:"start_time" json:"start_time"`
	EndTime           string    `db:"end_time" json:"end_time"`
	PriceILS          float64   `db:"price_ils" json:"price_ils"`
	MaxCapacity       int       `db:"max_capacity" json:"max_capacity"`
	CurrentEnrollment int       `db:"current_enrollment" json:"current_enrollment"`
	Active            bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends ClassSession with instructor information.
type ClassDetail struct {
	ClassSession
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

// ClassFilter defines filter criteria for listing class sessions.
type ClassFilter struct {
	InstructorID string
	BranchID     string
	DayOfWeek    *int
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
