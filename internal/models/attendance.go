package models

import "time"

type AttendanceRecord struct {
	ID        int64     `db:"id" json:"id"`
	SessionID int64     `db:"session_id" json:"session_id"`
	StudentID int64     `db:"student_id" json:"student_id"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields
	StudentName string `db:"student_name" json:"student_name,omitempty"`
}

// SessionAttendanceCount is the per-session tally used by group statistics.
type SessionAttendanceCount struct {
	SessionID int64 `db:"session_id" json:"session_id"`
	Total     int   `db:"total" json:"total"`
	Present   int   `db:"present" json:"present"`
}

type MonthlyAttendance struct {
	Month           string  `db:"month" json:"month"` // "2024-06"
	TotalClasses    int     `db:"total_classes" json:"total_classes"`
	AttendedClasses int     `db:"attended_classes" json:"attended_classes"`
	AttendanceRate  float64 `json:"attendance_rate"`
}

type StudentStats struct {
	StudentID       int64               `json:"student_id"`
	TotalClasses    int                 `json:"total_classes"`
	AttendedClasses int                 `json:"attended_classes"`
	AttendanceRate  float64             `json:"attendance_rate"`
	Monthly         []MonthlyAttendance `json:"monthly_breakdown"`
}

type StudentGroupStats struct {
	StudentID       int64   `db:"student_id" json:"student_id"`
	StudentName     string  `db:"student_name" json:"student_name"`
	TotalClasses    int     `db:"total_classes" json:"total_classes"`
	AttendedClasses int     `db:"attended_classes" json:"attended_classes"`
	AttendanceRate  float64 `json:"attendance_rate"`
}

type GroupStats struct {
	GroupID int64 `json:"group_id"`
	// Non-cancelled sessions of the group in range.
	TotalEvents int `json:"total_events"`
	// Per-event denominator is the number of attendance rows when attendance
	// was taken, otherwise the current roster size. The roster fallback is a
	// known approximation for groups whose membership changed since.
	OverallAttendanceRate float64             `json:"overall_attendance_rate"`
	PerStudent            []StudentGroupStats `json:"per_student"`
}
