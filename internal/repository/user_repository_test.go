package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "postgres")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func strRef(s string) *string { return &s }

var userColumnNames = []string{"id", "email", "full_name", "phone", "role", "foundation_id", "clerk_id", "invitation_token", "is_active", "is_blocked", "deactivation_reason", "deactivated_at", "deactivated_by", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userColumnNames).
		AddRow("u-1", "ada@example.com", "Ada", nil, string(models.RoleReviewer), nil, "clerk_1", nil, true, false, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("Ada@Example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleReviewer, user.Role)
	require.NotNil(t, user.ClerkID)
	assert.Equal(t, "clerk_1", *user.ClerkID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByClerkIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE clerk_id = $1")).
		WithArgs("clerk_missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByClerkID(context.Background(), "clerk_missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	role := models.RoleAdmin
	now := time.Now()
	rows := sqlmock.NewRows(userColumnNames).
		AddRow("u-1", "admin@example.com", "Admin", nil, string(models.RoleAdmin), nil, "clerk_a", nil, true, false, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 AND (LOWER(email) LIKE $2 OR LOWER(full_name) LIKE $2) ORDER BY email ASC LIMIT 10 OFFSET 0")).
		WithArgs(models.RoleAdmin, "%adm%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = $1")).
		WithArgs(models.RoleAdmin, "%adm%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, Search: "ADM", Page: 1, PageSize: 10, SortBy: "email", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserWritesAuditInSameTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{Email: " New@Example.com ", FullName: "New", Role: models.RoleBeneficiary, ClerkID: strRef("clerk_new"), IsActive: true}
	err := repo.Create(context.Background(), user, &models.AuditLog{Action: models.AuditActionInvitationAccept, Resource: models.AuditResourceUser})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLifecycleRollsBackWhenUserMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET role").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateLifecycle(context.Background(), &models.User{ID: "u-gone"}, &models.AuditLog{Action: models.AuditActionUserDeactivate})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncProfileUnknownClerkID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET email = $2")).
		WithArgs("clerk_x", "x@example.com", "X", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SyncProfile(context.Background(), "clerk_x", "x@example.com", "X", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
