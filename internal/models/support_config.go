package models

import (
	"database/sql/driver"
	"math"
	"time"
)

// AcademicLevel is an ordered stage of schooling.
type AcademicLevel string

const (
	LevelNursery    AcademicLevel = "nursery"
	LevelPrimary    AcademicLevel = "primary"
	LevelJSS        AcademicLevel = "jss"
	LevelSSS        AcademicLevel = "sss"
	LevelUniversity AcademicLevel = "university"
)

var academicLevelOrder = map[AcademicLevel]int{
	LevelNursery:    1,
	LevelPrimary:    2,
	LevelJSS:        3,
	LevelSSS:        4,
	LevelUniversity: 5,
}

// Ordinal returns the level's position (nursery=1 ... university=5), or 0 when unknown.
func (l AcademicLevel) Ordinal() int {
	return academicLevelOrder[l]
}

// SchoolType identifies the kind of school a beneficiary attends.
type SchoolType string

const (
	SchoolPublic        SchoolType = "public"
	SchoolPrivate       SchoolType = "private"
	SchoolInternational SchoolType = "international"
)

// Valid reports whether t is a known school type.
func (t SchoolType) Valid() bool {
	return t == SchoolPublic || t == SchoolPrivate || t == SchoolInternational
}

// EligibilityRules bound who may receive a type of support. Zero values are unbounded.
type EligibilityRules struct {
	MinAcademicLevel AcademicLevel `json:"min_academic_level,omitempty" validate:"omitempty,oneof=nursery primary jss sss university"`
	MaxAcademicLevel AcademicLevel `json:"max_academic_level,omitempty" validate:"omitempty,oneof=nursery primary jss sss university"`
	MinAge           int           `json:"min_age,omitempty" validate:"gte=0"`
	MaxAge           int           `json:"max_age,omitempty" validate:"gte=0"`
	RequiresMinGrade *float64      `json:"requires_min_grade,omitempty" validate:"omitempty,gte=0,lte=100"`
}

func (r EligibilityRules) Value() (driver.Value, error) { return marshalJSONB(r, "eligibility rules") }
func (r *EligibilityRules) Scan(value interface{}) error {
	return scanJSONB(value, r, "eligibility rules")
}

// SchoolTypeMultipliers scale a tier's amounts per school type.
type SchoolTypeMultipliers struct {
	Public        float64 `json:"public" validate:"gte=0"`
	Private       float64 `json:"private" validate:"gte=0"`
	International float64 `json:"international" validate:"gte=0"`
}

// For returns the multiplier for t. An unset multiplier counts as 1.0; an
// unknown school type reports false.
func (m SchoolTypeMultipliers) For(t SchoolType) (float64, bool) {
	var v float64
	switch t {
	case SchoolPublic:
		v = m.Public
	case SchoolPrivate:
		v = m.Private
	case SchoolInternational:
		v = m.International
	default:
		return 0, false
	}
	if v == 0 {
		v = 1
	}
	return v, true
}

// AmountTier is the funding range for one academic level.
type AmountTier struct {
	AcademicLevel         AcademicLevel         `json:"academic_level" validate:"required,oneof=nursery primary jss sss university"`
	MinAmount             int64                 `json:"min_amount" validate:"gte=0"`
	MaxAmount             int64                 `json:"max_amount" validate:"gtefield=MinAmount"`
	DefaultAmount         int64                 `json:"default_amount" validate:"gtefield=MinAmount,ltefield=MaxAmount"`
	Currency              string                `json:"currency" validate:"required,len=3"`
	Frequency             string                `json:"frequency" validate:"required,oneof=one_time monthly termly annually"`
	SchoolTypeMultipliers SchoolTypeMultipliers `json:"school_type_multipliers"`
}

// AmountConfig is the ordered tier list of a support type.
type AmountConfig []AmountTier

// Tier returns the tier for level. Matching is exact.
func (c AmountConfig) Tier(level AcademicLevel) (AmountTier, bool) {
	for _, tier := range c {
		if tier.AcademicLevel == level {
			return tier, true
		}
	}
	return AmountTier{}, false
}

func (c AmountConfig) Value() (driver.Value, error) {
	if c == nil {
		c = AmountConfig{}
	}
	return marshalJSONB(c, "amount config")
}
func (c *AmountConfig) Scan(value interface{}) error { return scanJSONB(value, c, "amount config") }

// RequiredDocument describes one document applicants must provide.
type RequiredDocument struct {
	DocumentType   string `json:"document_type" validate:"required,max=64"`
	DisplayName    string `json:"display_name" validate:"required"`
	IsMandatory    bool   `json:"is_mandatory"`
	ValidityPeriod int    `json:"validity_period,omitempty" validate:"gte=0"`
}

// RequiredDocuments lists the documents of a support type. ValidityPeriod is in days.
type RequiredDocuments []RequiredDocument

// Find returns the requirement for documentType.
func (d RequiredDocuments) Find(documentType string) (RequiredDocument, bool) {
	for _, doc := range d {
		if doc.DocumentType == documentType {
			return doc, true
		}
	}
	return RequiredDocument{}, false
}

func (d RequiredDocuments) Value() (driver.Value, error) {
	if d == nil {
		d = RequiredDocuments{}
	}
	return marshalJSONB(d, "required documents")
}
func (d *RequiredDocuments) Scan(value interface{}) error {
	return scanJSONB(value, d, "required documents")
}

// ApplicationSettings governs how applications for a support type are accepted.
type ApplicationSettings struct {
	AllowMultipleApplications    bool       `json:"allow_multiple_applications"`
	RequiresGuardianConsent      bool       `json:"requires_guardian_consent"`
	RequiresAcademicVerification bool       `json:"requires_academic_verification"`
	ProcessingDays               int        `json:"processing_days" validate:"gte=0"`
	ApplicationDeadline          *time.Time `json:"application_deadline,omitempty"`
}

func (s ApplicationSettings) Value() (driver.Value, error) {
	return marshalJSONB(s, "application settings")
}
func (s *ApplicationSettings) Scan(value interface{}) error {
	return scanJSONB(value, s, "application settings")
}

// PerformanceRequirements gate renewal of support between sessions.
type PerformanceRequirements struct {
	MinAttendance      float64 `json:"min_attendance" validate:"gte=0,lte=100"`
	MinGradeForRenewal float64 `json:"min_grade_for_renewal" validate:"gte=0,lte=100"`
}

func (p PerformanceRequirements) Value() (driver.Value, error) {
	return marshalJSONB(p, "performance requirements")
}
func (p *PerformanceRequirements) Scan(value interface{}) error {
	return scanJSONB(value, p, "performance requirements")
}

// PriorityWeights weight the five review factors when ranking applications.
type PriorityWeights struct {
	FinancialNeed   float64 `json:"financial_need" validate:"gte=0,lte=1"`
	AcademicMerit   float64 `json:"academic_merit" validate:"gte=0,lte=1"`
	EssayQuality    float64 `json:"essay_quality" validate:"gte=0,lte=1"`
	FamilySituation float64 `json:"family_situation" validate:"gte=0,lte=1"`
	CommunityImpact float64 `json:"community_impact" validate:"gte=0,lte=1"`
}

// PriorityWeightTolerance is the accepted deviation of the weight sum from 1.0.
const PriorityWeightTolerance = 0.01

// Sum adds the five weights.
func (w PriorityWeights) Sum() float64 {
	return w.FinancialNeed + w.AcademicMerit + w.EssayQuality + w.FamilySituation + w.CommunityImpact
}

// Balanced reports whether the weights sum to 1.0 within tolerance.
func (w PriorityWeights) Balanced() bool {
	return math.Abs(w.Sum()-1) <= PriorityWeightTolerance
}

func (w PriorityWeights) Value() (driver.Value, error) { return marshalJSONB(w, "priority weights") }
func (w *PriorityWeights) Scan(value interface{}) error {
	return scanJSONB(value, w, "priority weights")
}

// SupportConfig is an admin-defined template for one type of financial support.
type SupportConfig struct {
	SupportType             string                  `db:"support_type" json:"support_type" validate:"required,max=64"`
	DisplayName             string                  `db:"display_name" json:"display_name" validate:"required,max=120"`
	Description             string                  `db:"description" json:"description"`
	EligibilityRules        EligibilityRules        `db:"eligibility_rules" json:"eligibility_rules"`
	AmountConfig            AmountConfig            `db:"amount_config" json:"amount_config" validate:"required,min=1,dive"`
	RequiredDocuments       RequiredDocuments       `db:"required_documents" json:"required_documents" validate:"dive"`
	ApplicationSettings     ApplicationSettings     `db:"application_settings" json:"application_settings"`
	PerformanceRequirements PerformanceRequirements `db:"performance_requirements" json:"performance_requirements"`
	PriorityWeights         PriorityWeights         `db:"priority_weights" json:"priority_weights"`
	IsActive                bool                    `db:"is_active" json:"is_active"`
	CreatedBy               *string                 `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy               *string                 `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt               time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time               `db:"updated_at" json:"updated_at"`
}
