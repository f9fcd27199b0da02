package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

// Roles recognised by the platform.
const (
	RoleAdmin      UserRole = "ADMIN"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleStudent    UserRole = "STUDENT"
)

// User represents a platform account. Every user belongs to exactly one
// studio except platform administrators created before studio assignment.
type User struct {
	ID              string    `db:"id" json:"id"`
	StudioID        *string   `db:"studio_id" json:"studio_id,omitempty"`
	Email           string    `db:"email" json:"email"`
	FullName        string    `db:"full_name" json:"full_name"`
	PhoneNumber     string    `db:"phone_number" json:"phone_number"`
	ProfileImageURL *string   `db:"profile_image_url" json:"profile_image_url,omitempty"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Role            UserRole  `db:"role" json:"role"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
	StudioID *string  `json:"studio_id,omitempty"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
