package models

// AdminStats summarises a studio for the admin dashboard.
type AdminStats struct {
	TotalStudents  int     `json:"total_students"`
	ActiveClasses  int     `json:"active_classes"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// InstructorStats summarises an instructor's day.
type InstructorStats struct {
	TodayClasses  []ClassDetail `json:"today_classes"`
	TotalStudents int           `json:"total_students"`
}
