package models

import "time"

// Studio is the tenant boundary. Classes, enrollments, payments and users
// all belong to exactly one studio.
type Studio struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	OwnerID      *string   `db:"owner_id" json:"owner_id,omitempty"`
	Description  *string   `db:"description" json:"description,omitempty"`
	ContactEmail *string   `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	WebsiteURL   *string   `db:"website_url" json:"website_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudioSummary is the minimal studio view embedded in invitation lookups.
type StudioSummary struct {
	Name         string `db:"name" json:"name"`
	SerialNumber string `db:"serial_number" json:"serial_number"`
}

// Branch is a physical location operated by a studio.
type Branch struct {
	ID        string    `db:"id" json:"id"`
	StudioID  string    `db:"studio_id" json:"studio_id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Room is a bookable space within a branch.
type Room struct {
	ID        string    `db:"id" json:"id"`
	StudioID  string    `db:"studio_id" json:"studio_id"`
	BranchID  string    `db:"branch_id" json:"branch_id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
