package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
)

var beneficiaryColumnNames = []string{"id", "application_id", "user_id", "foundation_id", "support_type", "academic_level", "school_type", "approved_amount", "currency", "frequency", "status", "start_date", "created_by", "created_at", "updated_at"}

func beneficiaryRow(id string, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(beneficiaryColumnNames).
		AddRow(id, "app-1", "user-1", nil, "tuition", "sss", "public", int64(150000), "NGN", "termly", "active", now, "admin-1", now, now)
}

func TestCreateFromApplicationInsertsSideEffects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBeneficiaryRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (application_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM beneficiaries WHERE application_id = $1")).WithArgs("app-1").WillReturnRows(beneficiaryRow("ben-1", now))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	audit := &models.AuditLog{Action: models.AuditActionBeneficiaryCreate, Resource: models.AuditResourceBeneficiary}
	b := &models.Beneficiary{ApplicationID: "app-1", UserID: strRef("user-1"), Status: models.BeneficiaryActive}
	stored, created, err := repo.CreateFromApplication(context.Background(), b, audit, &models.Notification{Template: models.TemplateWelcome})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ben-1", stored.ID)
	require.NotNil(t, audit.ResourceID)
	assert.Equal(t, "ben-1", *audit.ResourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFromApplicationReturnsExistingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBeneficiaryRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (application_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM beneficiaries WHERE application_id = $1")).WithArgs("app-1").WillReturnRows(beneficiaryRow("ben-existing", now))
	mock.ExpectCommit()

	b := &models.Beneficiary{ApplicationID: "app-1"}
	stored, created, err := repo.CreateFromApplication(context.Background(), b, &models.AuditLog{}, &models.Notification{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ben-existing", stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeneficiaryUpdateStatusGuardsCurrentStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBeneficiaryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE beneficiaries SET status = $3")).
		WithArgs("ben-1", models.BeneficiaryActive, models.BeneficiarySuspended, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "ben-1", models.BeneficiaryActive, models.BeneficiarySuspended))
	assert.NoError(t, mock.ExpectationsWereMet())
}
