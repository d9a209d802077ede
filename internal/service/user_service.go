package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	UpdateLifecycle(ctx context.Context, user *models.User, audit *models.AuditLog) error
	SyncProfile(ctx context.Context, clerkID, email, fullName string, phone *string) error
}

const upstreamDeletionReason = "account deleted in identity provider"

// UserService handles role and activation changes for existing accounts.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns paginated users with their derived status.
func (s *UserService) List(ctx context.Context, filter models.UserFilter, actor models.Actor) ([]models.UserView, *models.Pagination, error) {
	if !actor.Role.Privileged() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can list users")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}

	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		status, err := models.ResolveUserStatus(&u)
		if err != nil {
			s.logger.Warn("user status unresolvable", zap.String("user_id", u.ID), zap.Error(err))
		}
		views = append(views, models.UserView{User: u, Status: status})
	}
	return views, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID with its derived status.
func (s *UserService) Get(ctx context.Context, id string, actor models.Actor) (*models.UserView, error) {
	if !actor.Role.Privileged() && actor.UserID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "users can only view their own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	status, err := models.ResolveUserStatus(user)
	if err != nil {
		return nil, err
	}
	return &models.UserView{User: *user, Status: status}, nil
}

// ChangeRole assigns a new role. Only super admins grant or remove administrative roles.
func (s *UserService) ChangeRole(ctx context.Context, id string, req dto.ChangeRoleRequest, actor models.Actor) (*models.UserView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid role change")
	}
	user, status, err := s.loadTarget(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Role.Privileged() && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can grant administrative roles")
	}
	if status == models.UserStatusInvitationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user has not accepted the invitation yet")
	}
	if user.Role == req.Role {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user already has role "+string(req.Role))
	}

	risk := models.RiskMedium
	if user.Role == models.RoleSuperAdmin || req.Role == models.RoleSuperAdmin {
		risk = models.RiskHigh
	}
	updated := *user
	updated.Role = req.Role
	audit := newAuditLog(actor, models.AuditActionUserRoleChange, models.AuditResourceUser, &user.ID, risk,
		map[string]string{"role": string(user.Role)}, map[string]string{"role": string(req.Role)})
	return s.persist(ctx, &updated, audit)
}

// Deactivate disables an active account. A reason is mandatory.
func (s *UserService) Deactivate(ctx context.Context, id string, req dto.ReasonRequest, actor models.Actor) (*models.UserView, error) {
	req, err := s.validateReason(req, "a reason is required to deactivate a user")
	if err != nil {
		return nil, err
	}
	user, status, err := s.loadTarget(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	switch status {
	case models.UserStatusInvitationPending:
		return nil, appErrors.Clone(appErrors.ErrConflict, "user has a pending invitation, revoke it instead")
	case models.UserStatusDeactivated:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "user is already deactivated")
	}
	if err := requireIdentity(user); err != nil {
		return nil, err
	}

	updated := s.deactivated(user, req.Reason, actor)
	audit := newAuditLog(actor, models.AuditActionUserDeactivate, models.AuditResourceUser, &user.ID, models.RiskMedium,
		map[string]bool{"is_active": true}, map[string]interface{}{"is_active": false, "reason": req.Reason})
	return s.persist(ctx, updated, audit)
}

// Reactivate restores a deactivated account. Blocked accounts need a super admin.
func (s *UserService) Reactivate(ctx context.Context, id string, actor models.Actor) (*models.UserView, error) {
	user, status, err := s.loadTarget(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if status != models.UserStatusDeactivated {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only deactivated users can be reactivated")
	}
	if user.IsBlocked && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can reactivate blocked users")
	}

	updated := *user
	updated.IsActive = true
	updated.IsBlocked = false
	updated.DeactivationReason = nil
	updated.DeactivatedAt = nil
	updated.DeactivatedBy = nil
	audit := newAuditLog(actor, models.AuditActionUserReactivate, models.AuditResourceUser, &user.ID, models.RiskLow,
		map[string]bool{"is_active": false, "is_blocked": user.IsBlocked}, map[string]bool{"is_active": true})
	return s.persist(ctx, &updated, audit)
}

// Block disables an account until a super admin reactivates it.
func (s *UserService) Block(ctx context.Context, id string, req dto.ReasonRequest, actor models.Actor) (*models.UserView, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can block users")
	}
	req, err := s.validateReason(req, "a reason is required to block a user")
	if err != nil {
		return nil, err
	}
	user, status, err := s.loadTarget(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if status == models.UserStatusInvitationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user has a pending invitation, revoke it instead")
	}
	if user.IsBlocked {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "user is already blocked")
	}
	if err := requireIdentity(user); err != nil {
		return nil, err
	}

	updated := s.deactivated(user, req.Reason, actor)
	updated.IsBlocked = true
	audit := newAuditLog(actor, models.AuditActionUserBlock, models.AuditResourceUser, &user.ID, models.RiskHigh,
		map[string]bool{"is_active": user.IsActive, "is_blocked": false}, map[string]interface{}{"is_blocked": true, "reason": req.Reason})
	return s.persist(ctx, updated, audit)
}

// Delete logically removes an account: it is deactivated and retained.
func (s *UserService) Delete(ctx context.Context, id string, req dto.ReasonRequest, actor models.Actor) (*models.UserView, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can delete users")
	}
	req, err := s.validateReason(req, "a reason is required to delete a user")
	if err != nil {
		return nil, err
	}
	user, status, err := s.loadTarget(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if status == models.UserStatusInvitationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user has a pending invitation, revoke it instead")
	}
	if err := requireIdentity(user); err != nil {
		return nil, err
	}

	updated := s.deactivated(user, req.Reason, actor)
	audit := newAuditLog(actor, models.AuditActionUserDelete, models.AuditResourceUser, &user.ID, models.RiskHigh,
		map[string]interface{}{"is_active": user.IsActive, "role": user.Role}, map[string]interface{}{"deleted": true, "reason": req.Reason})
	return s.persist(ctx, updated, audit)
}

// SyncFromIdentityEvent refreshes the profile fields owned by the identity provider.
func (s *UserService) SyncFromIdentityEvent(ctx context.Context, cu dto.ClerkUser) error {
	user, err := s.repo.FindByClerkID(ctx, cu.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("identity update for unknown user ignored", zap.String("clerk_id", cu.ID))
			return nil
		}
		return internalError(err, "failed to load user")
	}

	email := cu.PrimaryEmail()
	if email == "" {
		email = user.Email
	}
	name := cu.FullName()
	if name == "" {
		name = user.FullName
	}
	if err := s.repo.SyncProfile(ctx, cu.ID, email, name, strPtr(cu.PrimaryPhone())); err != nil {
		return internalError(err, "failed to sync user profile")
	}
	return nil
}

// DeactivateFromIdentityEvent deactivates, never deletes, the account removed upstream.
func (s *UserService) DeactivateFromIdentityEvent(ctx context.Context, clerkID string) error {
	user, err := s.repo.FindByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("identity deletion for unknown user ignored", zap.String("clerk_id", clerkID))
			return nil
		}
		return internalError(err, "failed to load user")
	}
	if !user.IsActive {
		return nil
	}

	updated := s.deactivated(user, upstreamDeletionReason, models.Actor{})
	audit := newAuditLog(models.Actor{}, models.AuditActionUserDeletedUpstream, models.AuditResourceUser, &user.ID, models.RiskHigh,
		map[string]bool{"is_active": true}, map[string]interface{}{"is_active": false, "clerk_id": clerkID})
	if err := s.repo.UpdateLifecycle(ctx, updated, audit); err != nil {
		return internalError(err, "failed to deactivate user")
	}
	return nil
}

// loadTarget fetches the user an administrator acts upon and applies the shared guards.
func (s *UserService) loadTarget(ctx context.Context, id string, actor models.Actor) (*models.User, models.UserStatus, error) {
	if !actor.Role.Privileged() {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "only administrators can manage users")
	}
	if actor.UserID == id {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "administrators cannot change their own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", lookupError(err, "user not found", "failed to load user")
	}
	if user.Role.Privileged() && actor.Role != models.RoleSuperAdmin {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "only super admins can manage administrators")
	}
	status, err := models.ResolveUserStatus(user)
	if err != nil {
		return nil, "", err
	}
	return user, status, nil
}

// requireIdentity refuses to deactivate accounts that would then carry
// neither an identity-provider id nor an invitation token.
func requireIdentity(user *models.User) error {
	if user.ClerkID == nil || *user.ClerkID == "" {
		return appErrors.Clone(appErrors.ErrInconsistentUserState, "user has no identity provider account")
	}
	return nil
}

// validateReason trims the reason so whitespace alone does not satisfy required.
func (s *UserService) validateReason(req dto.ReasonRequest, message string) (dto.ReasonRequest, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return req, validationError(err, message)
	}
	return req, nil
}

func (s *UserService) deactivated(user *models.User, reason string, actor models.Actor) *models.User {
	updated := *user
	now := s.now().UTC()
	updated.IsActive = false
	updated.DeactivationReason = &reason
	updated.DeactivatedAt = &now
	updated.DeactivatedBy = strPtr(actor.UserID)
	return &updated
}

func (s *UserService) persist(ctx context.Context, user *models.User, audit *models.AuditLog) (*models.UserView, error) {
	if err := s.repo.UpdateLifecycle(ctx, user, audit); err != nil {
		return nil, lookupError(err, "user not found", "failed to update user")
	}
	status, err := models.ResolveUserStatus(user)
	if err != nil {
		return nil, err
	}
	return &models.UserView{User: *user, Status: status}, nil
}
