package dto

import "github.com/noah-isme/foundation-api/internal/models"

// SupportConfigRequest carries the editable fields of a support configuration.
// On update SupportType must be empty or equal to the path key.
type SupportConfigRequest struct {
	SupportType             string                         `json:"support_type" validate:"omitempty,max=64"`
	DisplayName             string                         `json:"display_name" validate:"required,max=120"`
	Description             string                         `json:"description" validate:"max=2000"`
	EligibilityRules        models.EligibilityRules        `json:"eligibility_rules"`
	AmountConfig            models.AmountConfig            `json:"amount_config" validate:"required,min=1,dive"`
	RequiredDocuments       models.RequiredDocuments       `json:"required_documents" validate:"dive"`
	ApplicationSettings     models.ApplicationSettings     `json:"application_settings"`
	PerformanceRequirements models.PerformanceRequirements `json:"performance_requirements"`
	PriorityWeights         models.PriorityWeights         `json:"priority_weights"`
}

// ToModel converts the request into an active SupportConfig keyed by supportType.
func (r SupportConfigRequest) ToModel(supportType string) *models.SupportConfig {
	return &models.SupportConfig{
		SupportType:             supportType,
		DisplayName:             r.DisplayName,
		Description:             r.Description,
		EligibilityRules:        r.EligibilityRules,
		AmountConfig:            r.AmountConfig,
		RequiredDocuments:       r.RequiredDocuments,
		ApplicationSettings:     r.ApplicationSettings,
		PerformanceRequirements: r.PerformanceRequirements,
		PriorityWeights:         r.PriorityWeights,
		IsActive:                true,
	}
}
