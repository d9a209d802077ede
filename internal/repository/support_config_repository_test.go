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

func TestGetSupportConfigDecodesJSONB(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSupportConfigRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"support_type", "display_name", "description", "eligibility_rules", "amount_config", "required_documents", "application_settings", "performance_requirements", "priority_weights", "is_active", "created_by", "updated_by", "created_at", "updated_at"}).
		AddRow("tuition", "Tuition", "",
			[]byte(`{"min_academic_level":"primary","max_age":25}`),
			[]byte(`[{"academic_level":"sss","min_amount":100,"max_amount":300,"default_amount":200,"currency":"NGN","frequency":"termly","school_type_multipliers":{"public":1,"private":1.5}}]`),
			[]byte(`[]`), []byte(`{}`), []byte(`{"min_attendance":75}`), []byte(`{"financial_need":1}`),
			true, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM support_configs WHERE support_type = $1")).WithArgs("tuition").WillReturnRows(rows)

	cfg, err := repo.Get(context.Background(), "tuition")
	require.NoError(t, err)
	assert.Equal(t, models.LevelPrimary, cfg.EligibilityRules.MinAcademicLevel)
	tier, ok := cfg.AmountConfig.Tier(models.LevelSSS)
	require.True(t, ok)
	assert.Equal(t, 1.5, tier.SchoolTypeMultipliers.Private)
	assert.Equal(t, 75.0, cfg.PerformanceRequirements.MinAttendance)
	assert.True(t, cfg.PriorityWeights.Balanced())
}

func TestUpsertSupportConfigs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSupportConfigRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (support_type)")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (support_type)")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), []models.SupportConfig{{SupportType: "tuition"}, {SupportType: "books"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
