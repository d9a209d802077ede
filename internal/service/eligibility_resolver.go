package service

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/foundation-api/internal/models"
)

// ResolveEligibility decides whether subject qualifies for cfg and, when it
// does, the permitted amount range. It has no side effects. Every failing
// check contributes a reason; amounts are only populated for eligible subjects.
func ResolveEligibility(subject models.EligibilitySubject, cfg models.SupportConfig) models.EligibilityResult {
	var reasons []string
	rules := cfg.EligibilityRules

	if !cfg.IsActive {
		reasons = append(reasons, fmt.Sprintf("support type %s is disabled", cfg.SupportType))
	}

	level := subject.AcademicLevel.Ordinal()
	switch {
	case level == 0:
		reasons = append(reasons, fmt.Sprintf("unknown academic level %q", subject.AcademicLevel))
	default:
		if floor := rules.MinAcademicLevel.Ordinal(); floor > 0 && level < floor {
			reasons = append(reasons, fmt.Sprintf("academic level %s is below minimum %s", subject.AcademicLevel, rules.MinAcademicLevel))
		}
		if ceiling := rules.MaxAcademicLevel.Ordinal(); ceiling > 0 && level > ceiling {
			reasons = append(reasons, fmt.Sprintf("academic level %s is above maximum %s", subject.AcademicLevel, rules.MaxAcademicLevel))
		}
	}

	if rules.MinAge > 0 || rules.MaxAge > 0 {
		switch {
		case subject.Age <= 0:
			reasons = append(reasons, "age is required by the eligibility rules")
		case rules.MinAge > 0 && subject.Age < rules.MinAge:
			reasons = append(reasons, fmt.Sprintf("age %d is below minimum %d", subject.Age, rules.MinAge))
		case rules.MaxAge > 0 && subject.Age > rules.MaxAge:
			reasons = append(reasons, fmt.Sprintf("age %d is above maximum %d", subject.Age, rules.MaxAge))
		}
	}

	if rules.RequiresMinGrade != nil {
		switch {
		case subject.LastGrade == nil:
			reasons = append(reasons, "last grade is required by the eligibility rules")
		case *subject.LastGrade < *rules.RequiresMinGrade:
			reasons = append(reasons, fmt.Sprintf("last grade %.2f is below minimum %.2f", *subject.LastGrade, *rules.RequiresMinGrade))
		}
	}

	tier, hasTier := cfg.AmountConfig.Tier(subject.AcademicLevel)
	if !hasTier {
		reasons = append(reasons, fmt.Sprintf("no amount tier configured for %s", subject.AcademicLevel))
	}
	multiplier, knownSchool := tier.SchoolTypeMultipliers.For(subject.SchoolType)
	if !knownSchool {
		reasons = append(reasons, fmt.Sprintf("unknown school type %q", subject.SchoolType))
	}

	if len(reasons) > 0 {
		return models.EligibilityResult{Eligible: false, Reasons: reasons}
	}

	return models.EligibilityResult{
		Eligible:      true,
		MinAmount:     scaleAmount(tier.MinAmount, multiplier),
		MaxAmount:     scaleAmount(tier.MaxAmount, multiplier),
		DefaultAmount: scaleAmount(tier.DefaultAmount, multiplier),
		Multiplier:    multiplier,
		Currency:      tier.Currency,
		Frequency:     tier.Frequency,
	}
}

func scaleAmount(amount int64, multiplier float64) int64 {
	return int64(math.Round(float64(amount) * multiplier))
}

// AgeAt returns the age in whole years on asOf for someone born on dob.
func AgeAt(dob, asOf time.Time) int {
	if dob.IsZero() || asOf.Before(dob) {
		return 0
	}
	years := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		years--
	}
	return years
}

// PriorityScore is the weighted sum of 0-100 factor scores rounded to two decimals.
func PriorityScore(weights models.PriorityWeights, scores models.ReviewScores) float64 {
	total := weights.FinancialNeed*scores.FinancialNeed +
		weights.AcademicMerit*scores.AcademicMerit +
		weights.EssayQuality*scores.EssayQuality +
		weights.FamilySituation*scores.FamilySituation +
		weights.CommunityImpact*scores.CommunityImpact
	return math.Round(total*100) / 100
}

// EvaluateRenewal checks a completed session against the renewal minimums.
// Unset minimums are not enforced; a set minimum without a recorded value fails.
func EvaluateRenewal(session models.AcademicSession, req models.PerformanceRequirements) models.RenewalResult {
	result := models.RenewalResult{SessionID: session.ID}

	if session.Status != models.SessionCompleted {
		result.Reasons = append(result.Reasons, "session is still in progress")
	}
	if req.MinAttendance > 0 {
		switch {
		case session.AttendanceRate == nil:
			result.Reasons = append(result.Reasons, "attendance rate not recorded")
		case *session.AttendanceRate < req.MinAttendance:
			result.Reasons = append(result.Reasons, fmt.Sprintf("attendance %.2f is below minimum %.2f", *session.AttendanceRate, req.MinAttendance))
		}
	}
	if req.MinGradeForRenewal > 0 {
		switch {
		case session.Grade == nil:
			result.Reasons = append(result.Reasons, "grade not recorded")
		case *session.Grade < req.MinGradeForRenewal:
			result.Reasons = append(result.Reasons, fmt.Sprintf("grade %.2f is below minimum %.2f", *session.Grade, req.MinGradeForRenewal))
		}
	}

	result.Eligible = len(result.Reasons) == 0
	return result
}
