package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type mockAuthRepo struct {
	users     map[string]models.User
	lastLogin map[string]time.Time
}

func newMockAuthRepo(users ...models.User) *mockAuthRepo {
	m := &mockAuthRepo{users: map[string]models.User{}, lastLogin: map[string]time.Time{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *mockAuthRepo) TouchLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "foundation-api"})
}

func TestIssueTokenForActiveUser(t *testing.T) {
	foundation := "f-1"
	user := activeUser("u1", models.RoleReviewer)
	user.FoundationID = &foundation
	repo := newMockAuthRepo(user)
	svc := newTestAuthService(repo)

	issued, err := svc.IssueToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.Equal(t, int64(3600), issued.ExpiresIn)
	assert.Contains(t, repo.lastLogin, "u1")

	claims, err := svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleReviewer, claims.Role)
	assert.Equal(t, "f-1", claims.FoundationID)
	assert.Equal(t, "foundation-api", claims.Issuer)
}

func TestIssueTokenRejectsInactiveAccounts(t *testing.T) {
	deactivated := activeUser("u2", models.RoleBeneficiary)
	deactivated.IsActive = false
	repo := newMockAuthRepo(pendingUser("u1"), deactivated)
	svc := newTestAuthService(repo)

	_, err := svc.IssueToken(context.Background(), "u1")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	_, err = svc.IssueToken(context.Background(), "u2")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	_, err = svc.IssueToken(context.Background(), "missing")
	assert.True(t, appErrors.IsNotFound(err))
	assert.Empty(t, repo.lastLogin)
}

func TestValidateTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	repo := newMockAuthRepo(activeUser("u1", models.RoleAdmin))
	svc := newTestAuthService(repo)

	other := NewAuthService(repo, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "foundation-api"})
	foreign, err := other.IssueToken(context.Background(), "u1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	issued, err := svc.IssueToken(context.Background(), "u1")
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(issued.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
