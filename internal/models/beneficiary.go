package models

import "time"

// BeneficiaryStatus is the support state of a beneficiary.
type BeneficiaryStatus string

const (
	BeneficiaryActive    BeneficiaryStatus = "active"
	BeneficiaryGraduated BeneficiaryStatus = "graduated"
	BeneficiaryWithdrawn BeneficiaryStatus = "withdrawn"
	BeneficiarySuspended BeneficiaryStatus = "suspended"
)

var beneficiaryTransitions = map[BeneficiaryStatus][]BeneficiaryStatus{
	BeneficiaryActive:    {BeneficiarySuspended, BeneficiaryGraduated, BeneficiaryWithdrawn},
	BeneficiarySuspended: {BeneficiaryActive, BeneficiaryGraduated, BeneficiaryWithdrawn},
}

// CanTransitionTo reports whether s -> next is allowed. Graduated and withdrawn are final.
func (s BeneficiaryStatus) CanTransitionTo(next BeneficiaryStatus) bool {
	for _, allowed := range beneficiaryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Beneficiary is a scholarship recipient created from an approved application.
type Beneficiary struct {
	ID             string            `db:"id" json:"id"`
	ApplicationID  string            `db:"application_id" json:"application_id"`
	UserID         *string           `db:"user_id" json:"user_id,omitempty"`
	FoundationID   *string           `db:"foundation_id" json:"foundation_id,omitempty"`
	SupportType    string            `db:"support_type" json:"support_type"`
	AcademicLevel  AcademicLevel     `db:"academic_level" json:"academic_level"`
	SchoolType     SchoolType        `db:"school_type" json:"school_type"`
	ApprovedAmount int64             `db:"approved_amount" json:"approved_amount"`
	Currency       string            `db:"currency" json:"currency"`
	Frequency      string            `db:"frequency" json:"frequency"`
	Status         BeneficiaryStatus `db:"status" json:"status"`
	StartDate      time.Time         `db:"start_date" json:"start_date"`
	CreatedBy      string            `db:"created_by" json:"created_by"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// BeneficiaryFilter captures listing criteria for beneficiaries.
type BeneficiaryFilter struct {
	Status       BeneficiaryStatus
	SupportType  string
	FoundationID string
	Page         int
	PageSize     int
}
