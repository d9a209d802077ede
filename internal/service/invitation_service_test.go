package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type stubInvitationRepo struct {
	users         *mockUserRepo
	invitations   map[string]*models.Invitation
	notifications []*models.Notification
	audits        []*models.AuditLog
}

func newStubInvitationRepo(users *mockUserRepo) *stubInvitationRepo {
	return &stubInvitationRepo{users: users, invitations: map[string]*models.Invitation{}}
}

func (r *stubInvitationRepo) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	inv, ok := r.invitations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := *inv
	return &found, nil
}

func (r *stubInvitationRepo) FindPendingByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.Email == email && inv.Status == models.InvitationPending {
			found := *inv
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *stubInvitationRepo) ListPending(ctx context.Context) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, inv := range r.invitations {
		if inv.Status == models.InvitationPending {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *stubInvitationRepo) CreateWithPlaceholder(ctx context.Context, placeholder *models.User, inv *models.Invitation, email *models.Notification, audit *models.AuditLog) error {
	if err := r.users.Create(ctx, placeholder, nil); err != nil {
		return err
	}
	inv.UserID = &placeholder.ID
	stored := *inv
	r.invitations[inv.ID] = &stored
	r.notifications = append(r.notifications, email)
	r.audits = append(r.audits, audit)
	return nil
}

func (r *stubInvitationRepo) Resend(ctx context.Context, id string, sentAt time.Time, email *models.Notification, audit *models.AuditLog) error {
	inv, ok := r.invitations[id]
	if !ok || inv.Status != models.InvitationPending {
		return sql.ErrNoRows
	}
	inv.SentAt = sentAt
	r.notifications = append(r.notifications, email)
	r.audits = append(r.audits, audit)
	return nil
}

func (r *stubInvitationRepo) Revoke(ctx context.Context, inv *models.Invitation, revokedAt time.Time, audit *models.AuditLog) error {
	stored, ok := r.invitations[inv.ID]
	if !ok || stored.Status != models.InvitationPending {
		return sql.ErrNoRows
	}
	stored.Status = models.InvitationRevoked
	stored.RevokedAt = &revokedAt
	if stored.UserID != nil {
		delete(r.users.users, *stored.UserID)
	}
	stored.UserID = nil
	r.audits = append(r.audits, audit)
	return nil
}

func (r *stubInvitationRepo) Accept(ctx context.Context, inv *models.Invitation, user *models.User, acceptedAt time.Time, welcome *models.Notification, audit *models.AuditLog) error {
	stored, ok := r.invitations[inv.ID]
	if !ok || stored.Status != models.InvitationPending {
		return sql.ErrNoRows
	}
	stored.Status = models.InvitationAccepted
	stored.AcceptedAt = &acceptedAt
	user.InvitationToken = nil
	user.IsActive = true
	activated := *user
	r.users.users[user.ID] = &activated
	r.notifications = append(r.notifications, welcome)
	r.audits = append(r.audits, audit)
	return nil
}

func newInvitationFixture(users ...models.User) (*InvitationService, *stubInvitationRepo, *mockUserRepo) {
	userRepo := newMockUserRepo(users...)
	invRepo := newStubInvitationRepo(userRepo)
	svc := NewInvitationService(invRepo, userRepo, nil, nil)
	svc.tokenCost = bcrypt.MinCost
	return svc, invRepo, userRepo
}

func clerkUser(id, email string) dto.ClerkUser {
	first, last := "Bola", "Ade"
	return dto.ClerkUser{
		ID:                    id,
		EmailAddresses:        []dto.ClerkEmailAddress{{ID: "em_1", EmailAddress: email}},
		PrimaryEmailAddressID: "em_1",
		FirstName:             &first,
		LastName:              &last,
	}
}

func TestInviteCreatesPendingPlaceholder(t *testing.T) {
	svc, invRepo, userRepo := newInvitationFixture()

	inv, err := svc.Invite(context.Background(), dto.InviteUserRequest{Email: "Reviewer@Example.com", FullName: "Bola Ade", Role: models.RoleReviewer}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, "reviewer@example.com", inv.Email)
	assert.Equal(t, models.InvitationPending, inv.Status)

	require.NotNil(t, inv.UserID)
	placeholder := userRepo.users[*inv.UserID]
	require.NotNil(t, placeholder)
	status, err := models.ResolveUserStatus(placeholder)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInvitationPending, status)
	assert.Nil(t, placeholder.ClerkID)
	_, err = bcrypt.Cost([]byte(*placeholder.InvitationToken))
	require.NoError(t, err, "token is stored as a bcrypt digest")

	require.Len(t, invRepo.notifications, 1)
	assert.Equal(t, models.TemplateInvitation, invRepo.notifications[0].Template)
	assert.NotContains(t, invRepo.notifications[0].Body, *placeholder.InvitationToken)
	require.Len(t, invRepo.audits, 1)
	assert.Equal(t, models.RiskLow, invRepo.audits[0].RiskLevel)

	_, err = svc.Invite(context.Background(), dto.InviteUserRequest{Email: "reviewer@example.com", FullName: "Again", Role: models.RoleReviewer}, adminActor)
	assert.True(t, appErrors.IsConflict(err))
}

func TestOnlySuperAdminInvitesAdmins(t *testing.T) {
	svc, _, _ := newInvitationFixture()

	_, err := svc.Invite(context.Background(), dto.InviteUserRequest{Email: "boss@example.com", FullName: "Boss", Role: models.RoleAdmin}, adminActor)
	assert.True(t, appErrors.IsPermission(err))

	_, err = svc.Invite(context.Background(), dto.InviteUserRequest{Email: "boss@example.com", FullName: "Boss", Role: models.RoleAdmin}, superAdminActor)
	require.NoError(t, err)
}

func TestResendKeepsSingleInvitation(t *testing.T) {
	svc, invRepo, _ := newInvitationFixture()
	ctx := context.Background()
	inv, err := svc.Invite(ctx, dto.InviteUserRequest{Email: "g@example.com", FullName: "G", Role: models.RoleGuardian}, adminActor)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	resent, err := svc.Resend(ctx, inv.ID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, resent.ID)
	assert.True(t, resent.SentAt.After(inv.SentAt))
	assert.Len(t, invRepo.invitations, 1)
	assert.Len(t, invRepo.notifications, 2)
}

func TestRevokeRemovesPlaceholder(t *testing.T) {
	svc, invRepo, userRepo := newInvitationFixture()
	ctx := context.Background()
	inv, err := svc.Invite(ctx, dto.InviteUserRequest{Email: "r@example.com", FullName: "R", Role: models.RoleReviewer}, adminActor)
	require.NoError(t, err)

	revoked, err := svc.Revoke(ctx, inv.ID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationRevoked, revoked.Status)
	assert.NotContains(t, userRepo.users, *inv.UserID)

	_, err = svc.Resend(ctx, inv.ID, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = svc.Revoke(ctx, inv.ID, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Len(t, invRepo.audits, 2)
}

func TestAcceptFromIdentityEventActivatesPlaceholder(t *testing.T) {
	svc, invRepo, userRepo := newInvitationFixture()
	ctx := context.Background()
	inv, err := svc.Invite(ctx, dto.InviteUserRequest{Email: "bola@example.com", FullName: "Bola", Role: models.RoleReviewer}, adminActor)
	require.NoError(t, err)

	user, created, err := svc.AcceptFromIdentityEvent(ctx, clerkUser("user_2abc", "BOLA@example.com"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, *inv.UserID, user.ID)
	assert.Equal(t, models.RoleReviewer, user.Role)
	assert.Equal(t, "Bola Ade", user.FullName)

	stored := userRepo.users[user.ID]
	status, err := models.ResolveUserStatus(stored)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, status)
	assert.Nil(t, stored.InvitationToken)
	assert.Equal(t, models.InvitationAccepted, invRepo.invitations[inv.ID].Status)
	assert.Equal(t, models.TemplateWelcome, invRepo.notifications[len(invRepo.notifications)-1].Template)

	again, created, err := svc.AcceptFromIdentityEvent(ctx, clerkUser("user_2abc", "bola@example.com"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestAcceptFromIdentityEventDirectSignup(t *testing.T) {
	svc, _, userRepo := newInvitationFixture()

	user, created, err := svc.AcceptFromIdentityEvent(context.Background(), clerkUser("user_9", "new@example.com"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleBeneficiary, user.Role)
	assert.Nil(t, user.FoundationID)
	assert.True(t, user.IsActive)
	assert.Len(t, userRepo.created, 1)

	_, _, err = svc.AcceptFromIdentityEvent(context.Background(), dto.ClerkUser{ID: "user_10"})
	assert.True(t, appErrors.IsValidation(err))
}
