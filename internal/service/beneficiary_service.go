package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type beneficiaryRepository interface {
	GetByID(ctx context.Context, id string) (*models.Beneficiary, error)
	List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.BeneficiaryStatus) error
}

type academicSessionRepository interface {
	Create(ctx context.Context, session *models.AcademicSession) error
	GetByID(ctx context.Context, id string) (*models.AcademicSession, error)
	ListByBeneficiary(ctx context.Context, beneficiaryID string) ([]models.AcademicSession, error)
}

// BeneficiaryService manages beneficiaries and their academic sessions.
type BeneficiaryService struct {
	beneficiaries beneficiaryRepository
	sessions      academicSessionRepository
	configs       supportConfigProvider
	audit         auditLogger
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewBeneficiaryService constructs the service.
func NewBeneficiaryService(beneficiaries beneficiaryRepository, sessions academicSessionRepository, configs supportConfigProvider, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *BeneficiaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BeneficiaryService{beneficiaries: beneficiaries, sessions: sessions, configs: configs, audit: audit, validator: validate, logger: logger}
}

// List returns a page of beneficiaries for staff.
func (s *BeneficiaryService) List(ctx context.Context, filter models.BeneficiaryFilter, actor models.Actor) ([]models.Beneficiary, *models.Pagination, error) {
	if !canReview(actor.Role) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can list beneficiaries")
	}
	items, total, err := s.beneficiaries.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list beneficiaries")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a beneficiary. Beneficiaries may only read their own record.
func (s *BeneficiaryService) Get(ctx context.Context, id string, actor models.Actor) (*models.Beneficiary, error) {
	b, err := s.beneficiaries.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "beneficiary not found", "failed to load beneficiary")
	}
	if isApplicantRole(actor.Role) && (b.UserID == nil || *b.UserID != actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "beneficiary records are only visible to their owner and staff")
	}
	return b, nil
}

// UpdateStatus moves a beneficiary between support states.
func (s *BeneficiaryService) UpdateStatus(ctx context.Context, id string, req dto.UpdateBeneficiaryStatusRequest, actor models.Actor) (*models.Beneficiary, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change beneficiary status")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid beneficiary status update")
	}
	b, err := s.beneficiaries.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "beneficiary not found", "failed to load beneficiary")
	}
	if !b.Status.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move beneficiary from %s to %s", b.Status, req.Status))
	}

	if err := s.beneficiaries.UpdateStatus(ctx, id, b.Status, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "beneficiary status changed concurrently, reload and retry")
		}
		return nil, internalError(err, "failed to update beneficiary status")
	}

	previous := b.Status
	b.Status = req.Status
	b.UpdatedAt = time.Now().UTC()
	emitAudit(ctx, s.audit, s.logger, newAuditLog(actor, models.AuditActionBeneficiaryStatus, models.AuditResourceBeneficiary, &b.ID, models.RiskMedium,
		map[string]string{"status": string(previous)},
		map[string]string{"status": string(req.Status), "reason": req.Reason}))
	return b, nil
}

// RecordSession stores an academic session for an existing beneficiary.
func (s *BeneficiaryService) RecordSession(ctx context.Context, beneficiaryID string, req dto.RecordSessionRequest, actor models.Actor) (*models.AcademicSession, error) {
	if !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can record academic sessions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid academic session")
	}
	if _, err := s.beneficiaries.GetByID(ctx, beneficiaryID); err != nil {
		return nil, lookupError(err, "beneficiary not found", "failed to load beneficiary")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, validationError(err, "start_date must be YYYY-MM-DD")
	}
	session := &models.AcademicSession{
		BeneficiaryID:  beneficiaryID,
		SessionName:    req.SessionName,
		Term:           req.Term,
		AcademicLevel:  req.AcademicLevel,
		Grade:          req.Grade,
		AttendanceRate: req.AttendanceRate,
		Status:         req.Status,
		StartDate:      start,
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, validationError(err, "end_date must be YYYY-MM-DD")
		}
		if end.Before(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
		}
		session.EndDate = &end
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, internalError(err, "failed to record academic session")
	}
	return session, nil
}

// ListSessions returns the beneficiary's sessions, newest first.
func (s *BeneficiaryService) ListSessions(ctx context.Context, beneficiaryID string, actor models.Actor) ([]models.AcademicSession, error) {
	if _, err := s.Get(ctx, beneficiaryID, actor); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByBeneficiary(ctx, beneficiaryID)
	if err != nil {
		return nil, internalError(err, "failed to list academic sessions")
	}
	return sessions, nil
}

// EvaluateRenewal checks a session against its support type's performance requirements.
func (s *BeneficiaryService) EvaluateRenewal(ctx context.Context, sessionID string, actor models.Actor) (*models.RenewalResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "academic session not found", "failed to load academic session")
	}
	b, err := s.Get(ctx, session.BeneficiaryID, actor)
	if err != nil {
		return nil, err
	}
	cfg, _, err := s.configs.Get(ctx, b.SupportType)
	if err != nil {
		return nil, lookupError(err, "support configuration not found", "failed to load support configuration")
	}
	result := EvaluateRenewal(*session, cfg.PerformanceRequirements)
	return &result, nil
}
