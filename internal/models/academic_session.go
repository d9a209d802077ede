package models

import "time"

// SessionStatus tracks whether an academic session has finished.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// AcademicSession records a beneficiary's performance over one term.
type AcademicSession struct {
	ID             string        `db:"id" json:"id"`
	BeneficiaryID  string        `db:"beneficiary_id" json:"beneficiary_id"`
	SessionName    string        `db:"session_name" json:"session_name"`
	Term           string        `db:"term" json:"term"`
	AcademicLevel  AcademicLevel `db:"academic_level" json:"academic_level"`
	Grade          *float64      `db:"grade" json:"grade,omitempty"`
	AttendanceRate *float64      `db:"attendance_rate" json:"attendance_rate,omitempty"`
	Status         SessionStatus `db:"status" json:"status"`
	StartDate      time.Time     `db:"start_date" json:"start_date"`
	EndDate        *time.Time    `db:"end_date" json:"end_date,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}
