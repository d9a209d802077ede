package dto

import "github.com/noah-isme/foundation-api/internal/models"

// UpdateBeneficiaryStatusRequest moves a beneficiary between support states.
type UpdateBeneficiaryStatusRequest struct {
	Status models.BeneficiaryStatus `json:"status" validate:"required,oneof=active graduated withdrawn suspended"`
	Reason string                   `json:"reason" validate:"max=500"`
}

// RecordSessionRequest records one academic session for a beneficiary.
type RecordSessionRequest struct {
	SessionName    string               `json:"session_name" validate:"required,max=64"`
	Term           string               `json:"term" validate:"required,max=32"`
	AcademicLevel  models.AcademicLevel `json:"academic_level" validate:"required,oneof=nursery primary jss sss university"`
	Grade          *float64             `json:"grade,omitempty" validate:"omitempty,gte=0,lte=100"`
	AttendanceRate *float64             `json:"attendance_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Status         models.SessionStatus `json:"status" validate:"required,oneof=in_progress completed"`
	StartDate      string               `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string               `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
