package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
)

// EligibilityService answers what-if eligibility questions against stored configurations.
type EligibilityService struct {
	configs   supportConfigProvider
	validator *validator.Validate
	now       func() time.Time
}

// NewEligibilityService constructs the service.
func NewEligibilityService(configs supportConfigProvider, validate *validator.Validate) *EligibilityService {
	if validate == nil {
		validate = validator.New()
	}
	return &EligibilityService{configs: configs, validator: validate, now: time.Now}
}

// Resolve runs the resolver for a prospective beneficiary.
func (s *EligibilityService) Resolve(ctx context.Context, req dto.ResolveEligibilityRequest) (*models.EligibilityResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid eligibility request")
	}
	cfg, _, err := s.configs.Get(ctx, req.SupportType)
	if err != nil {
		return nil, err
	}

	subject := models.EligibilitySubject{
		AcademicLevel: req.AcademicLevel,
		SchoolType:    req.SchoolType,
		LastGrade:     req.LastGrade,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, validationError(err, "date_of_birth must be YYYY-MM-DD")
		}
		subject.Age = AgeAt(dob, s.now())
	}

	result := ResolveEligibility(subject, *cfg)
	return &result, nil
}
