package models

// EligibilitySubject is the beneficiary profile the resolver evaluates.
// Age is in whole years with 0 meaning unknown.
type EligibilitySubject struct {
	AcademicLevel AcademicLevel `json:"academic_level"`
	SchoolType    SchoolType    `json:"school_type"`
	Age           int           `json:"age,omitempty"`
	LastGrade     *float64      `json:"last_grade,omitempty"`
}

// EligibilityResult is the resolver verdict. Amounts are set only when Eligible.
type EligibilityResult struct {
	Eligible      bool     `json:"eligible"`
	Reasons       []string `json:"reasons,omitempty"`
	MinAmount     int64    `json:"min_amount"`
	MaxAmount     int64    `json:"max_amount"`
	DefaultAmount int64    `json:"default_amount"`
	Multiplier    float64  `json:"multiplier,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Frequency     string   `json:"frequency,omitempty"`
}

// RenewalResult reports whether a session meets the renewal requirements.
type RenewalResult struct {
	SessionID string   `json:"session_id"`
	Eligible  bool     `json:"eligible"`
	Reasons   []string `json:"reasons,omitempty"`
}
