package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/internal/repository"
	"github.com/noah-isme/foundation-api/pkg/database"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	ListReviews(ctx context.Context, applicationID string) ([]models.ApplicationReview, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	CountOpenByApplicant(ctx context.Context, applicantID, supportType string) (int, error)
	AssignReviewer(ctx context.Context, id, reviewerID string, at time.Time) error
	ApplyReview(ctx context.Context, change repository.ReviewChange) error
}

type beneficiaryCreator interface {
	FindByApplicationID(ctx context.Context, applicationID string) (*models.Beneficiary, error)
	CreateFromApplication(ctx context.Context, b *models.Beneficiary, audit *models.AuditLog, welcome *models.Notification) (*models.Beneficiary, bool, error)
}

type applicationDocumentLister interface {
	ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error)
}

type supportConfigProvider interface {
	Get(ctx context.Context, supportType string) (*models.SupportConfig, bool, error)
}

// ApplicationServiceConfig toggles review workflow behaviour.
type ApplicationServiceConfig struct {
	AllowAdminOverride bool
	BulkConcurrency    int
}

// ApplicationService runs the application review state machine.
type ApplicationService struct {
	apps          applicationRepository
	beneficiaries beneficiaryCreator
	documents     applicationDocumentLister
	configs       supportConfigProvider
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           ApplicationServiceConfig
	now           func() time.Time
}

// NewApplicationService constructs the service. metrics may be nil.
func NewApplicationService(apps applicationRepository, beneficiaries beneficiaryCreator, documents applicationDocumentLister, configs supportConfigProvider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ApplicationServiceConfig) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationService{
		apps:          apps,
		beneficiaries: beneficiaries,
		documents:     documents,
		configs:       configs,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

func isApplicantRole(role models.UserRole) bool {
	return role == models.RoleBeneficiary || role == models.RoleGuardian
}

func canReview(role models.UserRole) bool {
	return role == models.RoleReviewer || role.Privileged()
}

// Submit validates and stores a new application for the acting applicant.
func (s *ApplicationService) Submit(ctx context.Context, req dto.SubmitApplicationRequest, actor models.Actor) (*models.Application, error) {
	if actor.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "applicant identity is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid application payload")
	}

	cfg, err := s.loadConfig(ctx, req.SupportType)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	settings := cfg.ApplicationSettings
	if settings.ApplicationDeadline != nil && now.After(*settings.ApplicationDeadline) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("applications for %s closed on %s", cfg.SupportType, settings.ApplicationDeadline.Format("2006-01-02")))
	}
	if settings.RequiresGuardianConsent && (req.Guardian == nil || !req.Guardian.ConsentGiven) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "guardian consent is required for this support type")
	}

	result := ResolveEligibility(subjectFor(req.Personal, req.Education, now), *cfg)
	if !result.Eligible {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "applicant is not eligible", result.Reasons)
	}

	if !settings.AllowMultipleApplications {
		open, err := s.apps.CountOpenByApplicant(ctx, actor.UserID, cfg.SupportType)
		if err != nil {
			return nil, internalError(err, "failed to check existing applications")
		}
		if open > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an open application for this support type already exists")
		}
	}

	app := &models.Application{
		ApplicantUserID: actor.UserID,
		FoundationID:    req.FoundationID,
		SupportType:     cfg.SupportType,
		Status:          models.ApplicationSubmitted,
		Personal:        req.Personal,
		Guardian:        req.Guardian,
		Education:       req.Education,
		Financial:       req.Financial,
		Essay:           req.Essay,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, internalError(err, "failed to submit application")
	}
	return app, nil
}

func subjectFor(personal models.PersonalInfo, education models.EducationInfo, asOf time.Time) models.EligibilitySubject {
	subject := models.EligibilitySubject{
		AcademicLevel: education.AcademicLevel,
		SchoolType:    education.SchoolType,
		LastGrade:     education.LastGrade,
	}
	if dob, ok := personal.BirthDate(); ok {
		subject.Age = AgeAt(dob, asOf)
	}
	return subject
}

func (s *ApplicationService) loadConfig(ctx context.Context, supportType string) (*models.SupportConfig, error) {
	cfg, _, err := s.configs.Get(ctx, supportType)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown support type %s", supportType))
		}
		return nil, err
	}
	return cfg, nil
}

// Get returns an application with its review history.
func (s *ApplicationService) Get(ctx context.Context, id string, actor models.Actor) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "application not found", "failed to load application")
	}
	if isApplicantRole(actor.Role) && app.ApplicantUserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "applications are only visible to their applicant and staff")
	}
	reviews, err := s.apps.ListReviews(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load application reviews")
	}
	app.Reviews = reviews
	return app, nil
}

// List returns a page of applications. Applicants only ever see their own.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter, actor models.Actor) ([]models.Application, *models.Pagination, error) {
	if isApplicantRole(actor.Role) {
		filter.ApplicantUserID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown application status "+string(filter.Status))
	}
	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list applications")
	}
	return apps, paginationFor(filter.Page, filter.PageSize, total), nil
}

// AssignReviewer hands an open application to a reviewer, moving submitted ones under review.
func (s *ApplicationService) AssignReviewer(ctx context.Context, id string, req dto.AssignReviewerRequest, actor models.Actor) (*models.Application, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can assign reviewers")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid reviewer assignment")
	}
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "application not found", "failed to load application")
	}
	if app.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application is already %s", app.Status))
	}

	now := s.now().UTC()
	if err := s.apps.AssignReviewer(ctx, id, req.ReviewerID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application changed while assigning a reviewer")
		}
		return nil, internalError(err, "failed to assign reviewer")
	}

	if app.Status == models.ApplicationSubmitted {
		s.metrics.RecordApplicationTransition(string(app.Status), string(models.ApplicationUnderReview))
		app.Status = models.ApplicationUnderReview
	}
	app.ReviewerID = &req.ReviewerID
	app.UpdatedAt = now
	return app, nil
}

// UpdateStatus records one review decision and moves the application to the requested status.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id string, req dto.UpdateApplicationStatusRequest, actor models.Actor) (*models.Application, error) {
	if !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers and administrators can review applications")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status update")
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "application not found", "failed to load application")
	}
	if actor.Role == models.RoleReviewer && app.ReviewerID != nil && *app.ReviewerID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application is assigned to another reviewer")
	}

	override, err := s.checkTransition(ctx, app, req, actor)
	if err != nil {
		return nil, err
	}

	change := repository.ReviewChange{
		Review: &models.ApplicationReview{
			ApplicationID: app.ID,
			ReviewerID:    actor.UserID,
			FromStatus:    app.Status,
			ToStatus:      req.Status,
			Comments:      req.Comments,
			InternalNotes: req.InternalNotes,
			Scores:        req.Scores,
			Override:      override,
			CreatedAt:     s.now().UTC(),
		},
	}
	if app.ReviewerID == nil {
		reviewer := actor.UserID
		change.ReviewerID = &reviewer
	}
	if req.Scores != nil {
		cfg, _, err := s.configs.Get(ctx, app.SupportType)
		if err != nil {
			return nil, internalError(err, "failed to load support configuration for scoring")
		}
		score := PriorityScore(cfg.PriorityWeights, *req.Scores)
		change.PriorityScore = &score
	}
	if override {
		change.Audit = newAuditLog(actor, models.AuditActionApplicationOverride, models.AuditResourceApplication, &app.ID, models.RiskHigh,
			map[string]string{"status": string(app.Status)},
			map[string]string{"status": string(req.Status), "comments": req.Comments})
	}

	if err := s.apps.ApplyReview(ctx, change); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application status changed concurrently, reload and retry")
		}
		return nil, internalError(err, "failed to update application status")
	}
	s.metrics.RecordApplicationTransition(string(app.Status), string(req.Status))

	return s.Get(ctx, id, actor)
}

// checkTransition reports whether the change needs an override, or why it is refused.
func (s *ApplicationService) checkTransition(ctx context.Context, app *models.Application, req dto.UpdateApplicationStatusRequest, actor models.Actor) (bool, error) {
	from, to := app.Status, req.Status
	if from == to {
		return false, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application is already %s", from))
	}
	if from.CanTransitionTo(to) {
		return false, nil
	}
	if !from.Terminal() {
		return false, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move application from %s to %s", from, to))
	}
	if !req.Override || !actor.Role.Privileged() {
		return false, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("%s applications can only change through an administrator override", from))
	}
	if !s.cfg.AllowAdminOverride {
		return false, appErrors.Clone(appErrors.ErrInvalidTransition, "status overrides are disabled")
	}
	if from == models.ApplicationApproved {
		_, err := s.beneficiaries.FindByApplicationID(ctx, app.ID)
		switch {
		case err == nil:
			return false, appErrors.Clone(appErrors.ErrInvalidTransition, "a beneficiary already exists for this application")
		case !errors.Is(err, sql.ErrNoRows):
			return false, internalError(err, "failed to check beneficiary")
		}
	}
	return true, nil
}

// BulkUpdateStatus applies one decision to many applications independently.
func (s *ApplicationService) BulkUpdateStatus(ctx context.Context, req dto.BulkApplicationStatusRequest, actor models.Actor) ([]dto.BulkItemResult, error) {
	if !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers and administrators can review applications")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk status update")
	}
	update := dto.UpdateApplicationStatusRequest{Status: req.Status, Comments: req.Comments}
	return runBulk(ctx, s.cfg.BulkConcurrency, req.IDs, func(ctx context.Context, id string) error {
		_, err := s.UpdateStatus(ctx, id, update, actor)
		return err
	}), nil
}

// CreateBeneficiaryFromApplication turns an approved application into a
// beneficiary. Repeated calls return the existing record with created=false.
func (s *ApplicationService) CreateBeneficiaryFromApplication(ctx context.Context, id string, actor models.Actor) (*models.Beneficiary, bool, error) {
	if !actor.Role.Privileged() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "only administrators can create beneficiaries")
	}
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, false, lookupError(err, "application not found", "failed to load application")
	}
	if app.Status != models.ApplicationApproved {
		return nil, false, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("application is %s, only approved applications become beneficiaries", app.Status))
	}

	existing, err := s.beneficiaries.FindByApplicationID(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, internalError(err, "failed to check beneficiary")
	}

	cfg, _, err := s.configs.Get(ctx, app.SupportType)
	if err != nil {
		return nil, false, lookupError(err, "support configuration not found", "failed to load support configuration")
	}
	// Disabling a support type closes new applications, not approved ones.
	active := *cfg
	active.IsActive = true

	now := s.now().UTC()
	result := ResolveEligibility(subjectFor(app.Personal, app.Education, now), active)
	if !result.Eligible {
		return nil, false, appErrors.WithDetails(appErrors.ErrConflict, "application no longer resolves to an eligible amount", result.Reasons)
	}

	applicant := app.ApplicantUserID
	beneficiary := &models.Beneficiary{
		ApplicationID:  app.ID,
		UserID:         &applicant,
		FoundationID:   app.FoundationID,
		SupportType:    app.SupportType,
		AcademicLevel:  app.Education.AcademicLevel,
		SchoolType:     app.Education.SchoolType,
		ApprovedAmount: result.DefaultAmount,
		Currency:       result.Currency,
		Frequency:      result.Frequency,
		Status:         models.BeneficiaryActive,
		StartDate:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		CreatedBy:      actor.UserID,
	}
	audit := newAuditLog(actor, models.AuditActionBeneficiaryCreate, models.AuditResourceBeneficiary, nil, models.RiskLow, nil, map[string]interface{}{
		"application_id":  app.ID,
		"approved_amount": result.DefaultAmount,
		"currency":        result.Currency,
	})
	welcome, err := newNotification(models.ChannelEmail, app.Personal.Email, &applicant, models.TemplateWelcome, map[string]string{
		"Name":      app.Personal.FullName,
		"Program":   cfg.DisplayName,
		"Amount":    strconv.FormatInt(result.DefaultAmount, 10),
		"Currency":  result.Currency,
		"Frequency": result.Frequency,
	})
	if err != nil {
		return nil, false, internalError(err, "failed to render welcome notification")
	}

	stored, created, err := s.beneficiaries.CreateFromApplication(ctx, beneficiary, audit, welcome)
	if err != nil {
		if constraint, dup := database.UniqueViolation(err); dup {
			s.logger.Info("beneficiary uniqueness violation", zap.String("application_id", id), zap.String("constraint", constraint))
			return nil, false, appErrors.Clone(appErrors.ErrConflict, "the applicant already holds a beneficiary record")
		}
		return nil, false, internalError(err, "failed to create beneficiary")
	}
	if created {
		s.logger.Info("beneficiary created", zap.String("beneficiary_id", stored.ID), zap.String("application_id", id))
	}
	return stored, created, nil
}

// DocumentChecklist compares the support type's required documents with the
// approved, unexpired uploads of the application.
func (s *ApplicationService) DocumentChecklist(ctx context.Context, id string, actor models.Actor) ([]models.ChecklistItem, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "application not found", "failed to load application")
	}
	if isApplicantRole(actor.Role) && app.ApplicantUserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "applications are only visible to their applicant and staff")
	}
	cfg, _, err := s.configs.Get(ctx, app.SupportType)
	if err != nil {
		return nil, lookupError(err, "support configuration not found", "failed to load support configuration")
	}
	docs, err := s.documents.ListByApplication(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to list documents")
	}

	now := s.now()
	items := make([]models.ChecklistItem, 0, len(cfg.RequiredDocuments))
	for _, required := range cfg.RequiredDocuments {
		item := models.ChecklistItem{
			DocumentType: required.DocumentType,
			DisplayName:  required.DisplayName,
			IsMandatory:  required.IsMandatory,
		}
		for i := range docs {
			doc := docs[i]
			if doc.DocumentType == required.DocumentType && doc.Status == models.DocumentApproved && !doc.Expired(now) {
				item.Satisfied = true
				item.DocumentID = &doc.ID
				break
			}
		}
		items = append(items, item)
	}
	return items, nil
}
