package dto

import "github.com/noah-isme/foundation-api/internal/models"

// SubmitApplicationRequest is the applicant's form submission.
type SubmitApplicationRequest struct {
	SupportType  string               `json:"support_type" validate:"required,max=64"`
	FoundationID *string              `json:"foundation_id,omitempty" validate:"omitempty,uuid"`
	Personal     models.PersonalInfo  `json:"personal" validate:"required"`
	Guardian     *models.GuardianInfo `json:"guardian,omitempty"`
	Education    models.EducationInfo `json:"education" validate:"required"`
	Financial    models.FinancialInfo `json:"financial" validate:"required"`
	Essay        models.Essay         `json:"essay" validate:"required"`
}

// AssignReviewerRequest assigns a reviewer to an application.
type AssignReviewerRequest struct {
	ReviewerID string `json:"reviewer_id" validate:"required,uuid"`
}

// UpdateApplicationStatusRequest records a review decision.
type UpdateApplicationStatusRequest struct {
	Status        models.ApplicationStatus `json:"status" validate:"required,oneof=submitted under_review approved rejected waitlisted"`
	Comments      string                   `json:"comments" validate:"max=4000"`
	InternalNotes string                   `json:"internal_notes" validate:"max=4000"`
	Scores        *models.ReviewScores     `json:"scores,omitempty"`
	Override      bool                     `json:"override"`
}

// BulkApplicationStatusRequest applies one decision to many applications.
type BulkApplicationStatusRequest struct {
	IDs      []string                 `json:"ids" validate:"required,min=1,max=200,dive,uuid"`
	Status   models.ApplicationStatus `json:"status" validate:"required,oneof=under_review approved rejected waitlisted"`
	Comments string                   `json:"comments" validate:"max=4000"`
}

// ApplicationQuery mirrors supported listing filters.
type ApplicationQuery struct {
	Status      string `form:"status"`
	SupportType string `form:"support_type"`
	ReviewerID  string `form:"reviewer_id"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// CreateBeneficiaryResponse reports the beneficiary for an application and whether this call created it.
type CreateBeneficiaryResponse struct {
	Beneficiary *models.Beneficiary `json:"beneficiary"`
	Created     bool                `json:"created"`
}
