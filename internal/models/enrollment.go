package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. CANCELLED is terminal; rows are never
// physically deleted.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// OccupiesSeat reports whether the status counts against class capacity.
// PENDING enrollments hold a seat until payment confirms or they cancel.
func (s EnrollmentStatus) OccupiesSeat() bool {
	return s == EnrollmentStatusActive || s == EnrollmentStatusPending
}

// PaymentStatus tracks how an enrollment stands financially.
type PaymentStatus string

// Possible payment statuses for an enrollment.
const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
)

// Enrollment captures a student's registration to a class session.
// TotalAmountDue is snapshotted from the class price at registration time;
// later price changes do not affect existing enrollments.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudioID       string           `db:"studio_id" json:"studio_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus  PaymentStatus    `db:"payment_status" json:"payment_status"`
	TotalAmountDue float64          `db:"total_amount_due" json:"total_amount_due"`
	StartDate      time.Time        `db:"start_date" json:"start_date"`
	Notes          *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentEnrollment enriches Enrollment with class and instructor context
// for the student-facing enrollment list.
type StudentEnrollment struct {
	Enrollment
	ClassName      string `db:"class_name" json:"class_name"`
	ClassDay       int    `db:"class_day" json:"class_day"`
	ClassStartTime string `db:"class_start_time" json:"class_start_time"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

// RosterEntry is one row of a class roster with student contact info.
type RosterEntry struct {
	EnrollmentID    string           `db:"enrollment_id" json:"enrollment_id"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus   PaymentStatus    `db:"payment_status" json:"payment_status"`
	StudentID       string           `db:"student_id" json:"student_id"`
	StudentName     string           `db:"student_name" json:"student_name"`
	StudentEmail    string           `db:"student_email" json:"student_email"`
	StudentPhone    string           `db:"student_phone" json:"student_phone"`
	ProfileImageURL *string          `db:"profile_image_url" json:"profile_image_url,omitempty"`
	RegisteredAt    time.Time        `db:"registered_at" json:"registered_at"`
}

// PriceSnapshot carries the class price captured at registration so the
// caller can drive payment-intent creation.
type PriceSnapshot struct {
	PriceILS  float64 `json:"price_ils"`
	ClassName string  `json:"class_name"`
}
