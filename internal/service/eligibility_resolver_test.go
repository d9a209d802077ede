package service

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
)

func float(v float64) *float64 { return &v }

func tuitionConfig() models.SupportConfig {
	return models.SupportConfig{
		SupportType: "tuition",
		DisplayName: "Tuition support",
		IsActive:    true,
		EligibilityRules: models.EligibilityRules{
			MinAcademicLevel: models.LevelPrimary,
			MaxAcademicLevel: models.LevelSSS,
		},
		AmountConfig: models.AmountConfig{
			{
				AcademicLevel: models.LevelPrimary,
				MinAmount:     10000,
				MaxAmount:     40000,
				DefaultAmount: 25000,
				Currency:      "NGN",
				Frequency:     "termly",
				SchoolTypeMultipliers: models.SchoolTypeMultipliers{
					Public:        1,
					Private:       1.5,
					International: 2,
				},
			},
			{
				AcademicLevel: models.LevelSSS,
				MinAmount:     333,
				MaxAmount:     999,
				DefaultAmount: 555,
				Currency:      "NGN",
				Frequency:     "annually",
				SchoolTypeMultipliers: models.SchoolTypeMultipliers{
					Private: 1.25,
				},
			},
		},
	}
}

func TestResolveEligibilityScalesPrivateSchoolAmounts(t *testing.T) {
	got := ResolveEligibility(models.EligibilitySubject{AcademicLevel: models.LevelPrimary, SchoolType: models.SchoolPrivate}, tuitionConfig())

	want := models.EligibilityResult{
		Eligible:      true,
		MinAmount:     15000,
		MaxAmount:     60000,
		DefaultAmount: 37500,
		Multiplier:    1.5,
		Currency:      "NGN",
		Frequency:     "termly",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestResolveEligibilityRoundsAndDefaultsUnsetMultiplier(t *testing.T) {
	cfg := tuitionConfig()

	private := ResolveEligibility(models.EligibilitySubject{AcademicLevel: models.LevelSSS, SchoolType: models.SchoolPrivate}, cfg)
	require.True(t, private.Eligible)
	assert.Equal(t, int64(416), private.MinAmount)
	assert.Equal(t, int64(1249), private.MaxAmount)
	assert.Equal(t, int64(694), private.DefaultAmount)

	public := ResolveEligibility(models.EligibilitySubject{AcademicLevel: models.LevelSSS, SchoolType: models.SchoolPublic}, cfg)
	require.True(t, public.Eligible)
	assert.Equal(t, int64(555), public.DefaultAmount)
	assert.Equal(t, 1.0, public.Multiplier)
}

func TestResolveEligibilityFailsClosedWithoutTier(t *testing.T) {
	cfg := tuitionConfig()
	cfg.EligibilityRules = models.EligibilityRules{}
	cfg.AmountConfig = cfg.AmountConfig[:1]

	got := ResolveEligibility(models.EligibilitySubject{AcademicLevel: models.LevelUniversity, SchoolType: models.SchoolPublic}, cfg)
	assert.False(t, got.Eligible)
	assert.Equal(t, []string{"no amount tier configured for university"}, got.Reasons)
	assert.Zero(t, got.DefaultAmount)
}

func TestResolveEligibilityCollectsEveryReason(t *testing.T) {
	cfg := tuitionConfig()
	cfg.IsActive = false
	cfg.EligibilityRules.MaxAge = 18
	cfg.EligibilityRules.RequiresMinGrade = float(60)

	got := ResolveEligibility(models.EligibilitySubject{
		AcademicLevel: models.LevelUniversity,
		SchoolType:    "boarding",
		Age:           21,
		LastGrade:     float(59.5),
	}, cfg)

	want := []string{
		"support type tuition is disabled",
		"academic level university is above maximum sss",
		"age 21 is above maximum 18",
		"last grade 59.50 is below minimum 60.00",
		"no amount tier configured for university",
		`unknown school type "boarding"`,
	}
	assert.False(t, got.Eligible)
	if diff := cmp.Diff(want, got.Reasons); diff != "" {
		t.Fatalf("unexpected reasons (-want +got):\n%s", diff)
	}
}

func TestResolveEligibilityRequiresKnownAgeWhenBounded(t *testing.T) {
	cfg := tuitionConfig()
	cfg.EligibilityRules.MinAge = 6

	got := ResolveEligibility(models.EligibilitySubject{AcademicLevel: models.LevelPrimary, SchoolType: models.SchoolPublic}, cfg)
	assert.False(t, got.Eligible)
	assert.Contains(t, got.Reasons, "age is required by the eligibility rules")
}

func TestResolveEligibilityIsPure(t *testing.T) {
	cfg := tuitionConfig()
	subject := models.EligibilitySubject{AcademicLevel: models.LevelPrimary, SchoolType: models.SchoolInternational}

	first := ResolveEligibility(subject, cfg)
	second := ResolveEligibility(subject, cfg)
	assert.True(t, cmp.Equal(first, second))
	assert.True(t, cmp.Equal(tuitionConfig(), cfg))
}

func TestAgeAt(t *testing.T) {
	dob := time.Date(2010, time.June, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 15, AgeAt(dob, time.Date(2026, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 16, AgeAt(dob, time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeAt(dob, time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeAt(time.Time{}, time.Now()))
}

func TestPriorityScore(t *testing.T) {
	weights := models.PriorityWeights{FinancialNeed: 0.4, AcademicMerit: 0.3, EssayQuality: 0.1, FamilySituation: 0.1, CommunityImpact: 0.1}
	scores := models.ReviewScores{FinancialNeed: 90, AcademicMerit: 70, EssayQuality: 55, FamilySituation: 80, CommunityImpact: 33}
	assert.Equal(t, 73.8, PriorityScore(weights, scores))
}

func TestEvaluateRenewal(t *testing.T) {
	req := models.PerformanceRequirements{MinAttendance: 75, MinGradeForRenewal: 50}

	passing := EvaluateRenewal(models.AcademicSession{ID: "s1", Status: models.SessionCompleted, AttendanceRate: float(80), Grade: float(65)}, req)
	assert.True(t, passing.Eligible)
	assert.Empty(t, passing.Reasons)

	failing := EvaluateRenewal(models.AcademicSession{ID: "s2", Status: models.SessionInProgress, AttendanceRate: float(60)}, req)
	assert.False(t, failing.Eligible)
	assert.Equal(t, []string{
		"session is still in progress",
		"attendance 60.00 is below minimum 75.00",
		"grade not recorded",
	}, failing.Reasons)
}
