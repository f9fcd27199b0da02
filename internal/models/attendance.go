package models

import "time"

// AttendanceStatus marks how a student attended a session.
type AttendanceStatus string

// Possible attendance statuses.
const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceExcused AttendanceStatus = "EXCUSED"
	AttendanceLate    AttendanceStatus = "LATE"
)

// AttendanceRecord is a per (enrollment, session_date) attendance mark.
// Keying by enrollment rather than student means attendance cannot exist
// for a student without an enrollment in the class.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	StudioID     string           `db:"studio_id" json:"studio_id"`
	ClassID      string           `db:"class_id" json:"class_id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	SessionDate  time.Time        `db:"session_date" json:"session_date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Notes        *string          `db:"notes" json:"notes,omitempty"`
	RecordedBy   string           `db:"recorded_by" json:"recorded_by"`
	RecordedAt   time.Time        `db:"recorded_at" json:"recorded_at"`
}

// AttendanceMark is the per-student payload when recording a session.
type AttendanceMark struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT EXCUSED LATE"`
	Notes     *string          `json:"notes,omitempty"`
}

// AttendanceDetail joins a record with student display info.
type AttendanceDetail struct {
	AttendanceRecord
	StudentName     string  `db:"student_name" json:"student_name"`
	ProfileImageURL *string `db:"profile_image_url" json:"profile_image_url,omitempty"`
}
