package models

import (
	"database/sql/driver"
	"time"
)

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWaitlisted  ApplicationStatus = "waitlisted"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationSubmitted:   {ApplicationUnderReview, ApplicationApproved, ApplicationRejected, ApplicationWaitlisted},
	ApplicationUnderReview: {ApplicationApproved, ApplicationRejected, ApplicationWaitlisted},
	ApplicationWaitlisted:  {ApplicationUnderReview, ApplicationApproved, ApplicationRejected},
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationSubmitted, ApplicationUnderReview, ApplicationApproved, ApplicationRejected, ApplicationWaitlisted:
		return true
	}
	return false
}

// Terminal reports whether s only changes through an admin override.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// CanTransitionTo reports whether the regular review flow allows s -> next.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PersonalInfo holds the applicant's identity details.
type PersonalInfo struct {
	FullName    string `json:"full_name" validate:"required,max=160"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
	DateOfBirth string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender,omitempty" validate:"omitempty,oneof=female male other"`
	Address     string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// BirthDate parses DateOfBirth.
func (p PersonalInfo) BirthDate() (time.Time, bool) {
	if p.DateOfBirth == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", p.DateOfBirth)
	return t, err == nil
}

func (p PersonalInfo) Value() (driver.Value, error) { return marshalJSONB(p, "personal info") }
func (p *PersonalInfo) Scan(value interface{}) error {
	return scanJSONB(value, p, "personal info")
}

// GuardianInfo identifies the guardian of a minor applicant.
type GuardianInfo struct {
	FullName     string `json:"full_name" validate:"required,max=160"`
	Relationship string `json:"relationship" validate:"required,max=64"`
	Phone        string `json:"phone" validate:"required,max=32"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	ConsentGiven bool   `json:"consent_given"`
}

func (g GuardianInfo) Value() (driver.Value, error) { return marshalJSONB(g, "guardian info") }
func (g *GuardianInfo) Scan(value interface{}) error {
	return scanJSONB(value, g, "guardian info")
}

// EducationInfo captures the applicant's schooling.
type EducationInfo struct {
	AcademicLevel AcademicLevel `json:"academic_level" validate:"required,oneof=nursery primary jss sss university"`
	SchoolType    SchoolType    `json:"school_type" validate:"required,oneof=public private international"`
	SchoolName    string        `json:"school_name" validate:"required,max=200"`
	CurrentClass  string        `json:"current_class,omitempty" validate:"omitempty,max=64"`
	LastGrade     *float64      `json:"last_grade,omitempty" validate:"omitempty,gte=0,lte=100"`
}

func (e EducationInfo) Value() (driver.Value, error) { return marshalJSONB(e, "education info") }
func (e *EducationInfo) Scan(value interface{}) error {
	return scanJSONB(value, e, "education info")
}

// FinancialInfo summarises the household's finances.
type FinancialInfo struct {
	HouseholdIncome int64  `json:"household_income" validate:"gte=0"`
	Dependents      int    `json:"dependents" validate:"gte=0"`
	RequestedAmount int64  `json:"requested_amount" validate:"gte=0"`
	OtherSupport    string `json:"other_support,omitempty" validate:"omitempty,max=500"`
}

func (f FinancialInfo) Value() (driver.Value, error) { return marshalJSONB(f, "financial info") }
func (f *FinancialInfo) Scan(value interface{}) error {
	return scanJSONB(value, f, "financial info")
}

// Essay is the applicant's personal statement.
type Essay struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required,max=20000"`
}

func (e Essay) Value() (driver.Value, error)  { return marshalJSONB(e, "essay") }
func (e *Essay) Scan(value interface{}) error { return scanJSONB(value, e, "essay") }

// ReviewScores are a reviewer's 0-100 ratings of the five priority factors.
type ReviewScores struct {
	FinancialNeed   float64 `json:"financial_need" validate:"gte=0,lte=100"`
	AcademicMerit   float64 `json:"academic_merit" validate:"gte=0,lte=100"`
	EssayQuality    float64 `json:"essay_quality" validate:"gte=0,lte=100"`
	FamilySituation float64 `json:"family_situation" validate:"gte=0,lte=100"`
	CommunityImpact float64 `json:"community_impact" validate:"gte=0,lte=100"`
}

func (s ReviewScores) Value() (driver.Value, error) { return marshalJSONB(s, "review scores") }
func (s *ReviewScores) Scan(value interface{}) error {
	return scanJSONB(value, s, "review scores")
}

// Application is a request for support under one SupportConfig.
type Application struct {
	ID              string              `db:"id" json:"id"`
	ApplicantUserID string              `db:"applicant_user_id" json:"applicant_user_id"`
	FoundationID    *string             `db:"foundation_id" json:"foundation_id,omitempty"`
	SupportType     string              `db:"support_type" json:"support_type"`
	Status          ApplicationStatus   `db:"status" json:"status"`
	ReviewerID      *string             `db:"reviewer_id" json:"reviewer_id,omitempty"`
	Personal        PersonalInfo        `db:"personal" json:"personal"`
	Guardian        *GuardianInfo       `db:"guardian" json:"guardian,omitempty"`
	Education       EducationInfo       `db:"education" json:"education"`
	Financial       FinancialInfo       `db:"financial" json:"financial"`
	Essay           Essay               `db:"essay" json:"essay"`
	PriorityScore   *float64            `db:"priority_score" json:"priority_score,omitempty"`
	SubmittedAt     time.Time           `db:"submitted_at" json:"submitted_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
	Reviews         []ApplicationReview `db:"-" json:"reviews,omitempty"`
}

// Open reports whether the application still awaits a final decision.
func (a *Application) Open() bool {
	return !a.Status.Terminal()
}

// ApplicationReview is one appended review decision.
type ApplicationReview struct {
	ID            string            `db:"id" json:"id"`
	ApplicationID string            `db:"application_id" json:"application_id"`
	ReviewerID    string            `db:"reviewer_id" json:"reviewer_id"`
	FromStatus    ApplicationStatus `db:"from_status" json:"from_status"`
	ToStatus      ApplicationStatus `db:"to_status" json:"to_status"`
	Comments      string            `db:"comments" json:"comments"`
	InternalNotes string            `db:"internal_notes" json:"internal_notes,omitempty"`
	Scores        *ReviewScores     `db:"scores" json:"scores,omitempty"`
	Override      bool              `db:"override" json:"override"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// ApplicationFilter captures listing criteria for applications.
type ApplicationFilter struct {
	Status          ApplicationStatus
	SupportType     string
	ReviewerID      string
	ApplicantUserID string
	FoundationID    string
	Page            int
	PageSize        int
}

// ChecklistItem reports whether one required document has been provided.
type ChecklistItem struct {
	DocumentType string  `json:"document_type"`
	DisplayName  string  `json:"display_name"`
	IsMandatory  bool    `json:"is_mandatory"`
	Satisfied    bool    `json:"satisfied"`
	DocumentID   *string `json:"document_id,omitempty"`
}
