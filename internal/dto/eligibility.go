package dto

import "github.com/noah-isme/foundation-api/internal/models"

// ResolveEligibilityRequest asks the resolver about a prospective beneficiary.
type ResolveEligibilityRequest struct {
	SupportType   string               `json:"support_type" validate:"required,max=64"`
	AcademicLevel models.AcademicLevel `json:"academic_level" validate:"required"`
	SchoolType    models.SchoolType    `json:"school_type" validate:"required"`
	DateOfBirth   string               `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LastGrade     *float64             `json:"last_grade,omitempty" validate:"omitempty,gte=0,lte=100"`
}
