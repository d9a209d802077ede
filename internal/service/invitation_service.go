package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/database"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type invitationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	FindPendingByEmail(ctx context.Context, email string) (*models.Invitation, error)
	ListPending(ctx context.Context) ([]models.Invitation, error)
	CreateWithPlaceholder(ctx context.Context, placeholder *models.User, inv *models.Invitation, email *models.Notification, audit *models.AuditLog) error
	Resend(ctx context.Context, id string, sentAt time.Time, email *models.Notification, audit *models.AuditLog) error
	Revoke(ctx context.Context, inv *models.Invitation, revokedAt time.Time, audit *models.AuditLog) error
	Accept(ctx context.Context, inv *models.Invitation, user *models.User, acceptedAt time.Time, welcome *models.Notification, audit *models.AuditLog) error
}

type invitationUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	Create(ctx context.Context, user *models.User, audit *models.AuditLog) error
}

// InvitationService issues invitations and binds them to identity-provider accounts.
type InvitationService struct {
	invitations invitationRepository
	users       invitationUserStore
	validator   *validator.Validate
	logger      *zap.Logger
	tokenCost   int
	now         func() time.Time
}

// NewInvitationService constructs the service.
func NewInvitationService(invitations invitationRepository, users invitationUserStore, validate *validator.Validate, logger *zap.Logger) *InvitationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InvitationService{
		invitations: invitations,
		users:       users,
		validator:   validate,
		logger:      logger,
		tokenCost:   bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// ListPending returns open invitations.
func (s *InvitationService) ListPending(ctx context.Context, actor models.Actor) ([]models.Invitation, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view invitations")
	}
	invs, err := s.invitations.ListPending(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list invitations")
	}
	return invs, nil
}

// Invite creates a placeholder account and a pending invitation, and queues the invitation email.
func (s *InvitationService) Invite(ctx context.Context, req dto.InviteUserRequest, actor models.Actor) (*models.Invitation, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can invite users")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid invitation payload")
	}
	if req.Role.Privileged() && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can invite administrators")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check existing users")
	}
	if _, err := s.invitations.FindPendingByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an invitation for this email is already pending")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check pending invitations")
	}

	digest, err := s.newTokenDigest()
	if err != nil {
		return nil, internalError(err, "failed to generate invitation token")
	}
	placeholder := &models.User{
		ID:              uuid.NewString(),
		Email:           email,
		FullName:        req.FullName,
		Role:            req.Role,
		FoundationID:    req.FoundationID,
		InvitationToken: &digest,
	}
	inv := &models.Invitation{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     req.FullName,
		Role:         req.Role,
		FoundationID: req.FoundationID,
		InvitedBy:    actor.UserID,
		Status:       models.InvitationPending,
		SentAt:       s.now().UTC(),
	}
	message, err := s.invitationEmail(inv, placeholder.ID)
	if err != nil {
		return nil, err
	}
	audit := newAuditLog(actor, models.AuditActionUserInvite, models.AuditResourceInvitation, &inv.ID, models.RiskLow, nil,
		map[string]string{"email": email, "role": string(req.Role)})

	if err := s.invitations.CreateWithPlaceholder(ctx, placeholder, inv, message, audit); err != nil {
		if _, dup := database.UniqueViolation(err); dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a user or invitation with this email already exists")
		}
		return nil, internalError(err, "failed to create invitation")
	}
	return inv, nil
}

// Resend queues the invitation email again while the placeholder is still pending.
func (s *InvitationService) Resend(ctx context.Context, id string, actor models.Actor) (*models.Invitation, error) {
	inv, err := s.loadPending(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if inv.UserID == nil {
		return nil, appErrors.Clone(appErrors.ErrInconsistentUserState, "invitation has no placeholder user")
	}
	placeholder, err := s.users.FindByID(ctx, *inv.UserID)
	if err != nil {
		return nil, lookupError(err, "invited user not found", "failed to load invited user")
	}
	status, err := models.ResolveUserStatus(placeholder)
	if err != nil {
		return nil, err
	}
	if status != models.UserStatusInvitationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invited user is already "+string(status))
	}

	message, err := s.invitationEmail(inv, placeholder.ID)
	if err != nil {
		return nil, err
	}
	sentAt := s.now().UTC()
	audit := newAuditLog(actor, models.AuditActionInvitationResend, models.AuditResourceInvitation, &inv.ID, models.RiskLow, nil, map[string]string{"email": inv.Email})
	if err := s.invitations.Resend(ctx, inv.ID, sentAt, message, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "invitation is no longer pending")
		}
		return nil, internalError(err, "failed to resend invitation")
	}
	inv.SentAt = sentAt
	return inv, nil
}

// Revoke cancels a pending invitation and removes its placeholder account.
func (s *InvitationService) Revoke(ctx context.Context, id string, actor models.Actor) (*models.Invitation, error) {
	inv, err := s.loadPending(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	revokedAt := s.now().UTC()
	audit := newAuditLog(actor, models.AuditActionInvitationRevoke, models.AuditResourceInvitation, &inv.ID, models.RiskLow,
		map[string]string{"status": string(models.InvitationPending)}, map[string]string{"status": string(models.InvitationRevoked)})
	if err := s.invitations.Revoke(ctx, inv, revokedAt, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "invitation is no longer pending")
		}
		return nil, internalError(err, "failed to revoke invitation")
	}
	inv.Status = models.InvitationRevoked
	inv.RevokedAt = &revokedAt
	inv.UserID = nil
	return inv, nil
}

// AcceptFromIdentityEvent binds a newly created identity-provider account. A
// pending invitation for the primary email activates its placeholder; without
// one the account becomes a direct-signup beneficiary. Accounts already bound
// to the identity id are returned untouched so webhook retries are harmless.
func (s *InvitationService) AcceptFromIdentityEvent(ctx context.Context, cu dto.ClerkUser) (*models.User, bool, error) {
	if cu.ID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "identity event carries no user id")
	}
	if existing, err := s.users.FindByClerkID(ctx, cu.ID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, internalError(err, "failed to load user")
	}

	email := cu.PrimaryEmail()
	if email == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "identity event carries no email address")
	}

	inv, err := s.invitations.FindPendingByEmail(ctx, email)
	switch {
	case err == nil:
		user, err := s.accept(ctx, inv, cu, email)
		return user, err == nil, err
	case errors.Is(err, sql.ErrNoRows):
		user, err := s.directSignup(ctx, cu, email)
		return user, err == nil, err
	default:
		return nil, false, internalError(err, "failed to look up invitation")
	}
}

func (s *InvitationService) accept(ctx context.Context, inv *models.Invitation, cu dto.ClerkUser, email string) (*models.User, error) {
	if inv.UserID == nil {
		return nil, appErrors.Clone(appErrors.ErrInconsistentUserState, "invitation has no placeholder user")
	}
	user, err := s.users.FindByID(ctx, *inv.UserID)
	if err != nil {
		return nil, lookupError(err, "invited user not found", "failed to load invited user")
	}

	clerkID := cu.ID
	user.ClerkID = &clerkID
	user.Email = email
	if name := cu.FullName(); name != "" {
		user.FullName = name
	}
	if phone := cu.PrimaryPhone(); phone != "" {
		user.Phone = &phone
	}
	user.Role = inv.Role
	user.FoundationID = inv.FoundationID

	welcome, err := newNotification(models.ChannelEmail, email, &user.ID, models.TemplateWelcome, map[string]string{
		"Name":    user.FullName,
		"Program": "the foundation portal",
	})
	if err != nil {
		return nil, internalError(err, "failed to render welcome notification")
	}
	audit := newAuditLog(models.Actor{UserID: user.ID}, models.AuditActionInvitationAccept, models.AuditResourceInvitation, &inv.ID, models.RiskLow,
		map[string]string{"status": string(models.InvitationPending)}, map[string]string{"status": string(models.InvitationAccepted), "clerk_id": clerkID})

	if err := s.invitations.Accept(ctx, inv, user, s.now().UTC(), welcome, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "invitation is no longer pending")
		}
		if _, dup := database.UniqueViolation(err); dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, "identity account is already bound to another user")
		}
		return nil, internalError(err, "failed to accept invitation")
	}
	s.logger.Info("invitation accepted", zap.String("invitation_id", inv.ID), zap.String("user_id", user.ID))
	return user, nil
}

func (s *InvitationService) directSignup(ctx context.Context, cu dto.ClerkUser, email string) (*models.User, error) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check existing users")
	}

	clerkID := cu.ID
	name := cu.FullName()
	if name == "" {
		name = email
	}
	user := &models.User{
		Email:    email,
		FullName: name,
		Phone:    strPtr(cu.PrimaryPhone()),
		Role:     models.RoleBeneficiary,
		ClerkID:  &clerkID,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user, nil); err != nil {
		if _, dup := database.UniqueViolation(err); dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
		}
		return nil, internalError(err, "failed to create user")
	}
	s.logger.Info("direct signup user created", zap.String("user_id", user.ID))
	return user, nil
}

func (s *InvitationService) loadPending(ctx context.Context, id string, actor models.Actor) (*models.Invitation, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can manage invitations")
	}
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "invitation not found", "failed to load invitation")
	}
	if inv.Status != models.InvitationPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "invitation is already "+string(inv.Status))
	}
	if inv.Role.Privileged() && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can manage administrator invitations")
	}
	return inv, nil
}

func (s *InvitationService) invitationEmail(inv *models.Invitation, placeholderID string) (*models.Notification, error) {
	n, err := newNotification(models.ChannelEmail, inv.Email, &placeholderID, models.TemplateInvitation, map[string]string{
		"Name": inv.FullName,
		"Role": strings.ReplaceAll(string(inv.Role), "_", " "),
	})
	if err != nil {
		return nil, internalError(err, "failed to render invitation email")
	}
	return n, nil
}

// newTokenDigest returns the bcrypt digest of a fresh random token. The raw
// token is discarded: acceptance matches the identity provider's user.created
// event by email, so the digest only marks the placeholder user as
// invitation pending and is cleared when the invitation is accepted.
func (s *InvitationService) newTokenDigest() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(raw)), s.tokenCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}
