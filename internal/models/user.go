package models

import (
	"time"

	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"
	RoleAdmin       UserRole = "admin"
	RoleReviewer    UserRole = "reviewer"
	RoleBeneficiary UserRole = "beneficiary"
	RoleGuardian    UserRole = "guardian"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleReviewer, RoleBeneficiary, RoleGuardian:
		return true
	}
	return false
}

// Privileged reports whether r is an administrative role.
func (r UserRole) Privileged() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// UserStatus is the lifecycle state derived from a user's stored flags.
type UserStatus string

const (
	UserStatusActive            UserStatus = "active"
	UserStatusInvitationPending UserStatus = "invitation_pending"
	UserStatusDeactivated       UserStatus = "deactivated"
)

// User represents an account stored in the users table.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	FullName           string     `db:"full_name" json:"full_name"`
	Phone              *string    `db:"phone" json:"phone,omitempty"`
	Role               UserRole   `db:"role" json:"role"`
	FoundationID       *string    `db:"foundation_id" json:"foundation_id,omitempty"`
	ClerkID            *string    `db:"clerk_id" json:"clerk_id,omitempty"`
	InvitationToken    *string    `db:"invitation_token" json:"-"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	IsBlocked          bool       `db:"is_blocked" json:"is_blocked"`
	DeactivationReason *string    `db:"deactivation_reason" json:"deactivation_reason,omitempty"`
	DeactivatedAt      *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
	DeactivatedBy      *string    `db:"deactivated_by" json:"deactivated_by,omitempty"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// ResolveUserStatus maps the stored flags onto exactly one UserStatus. An
// inactive user carrying both or neither identity marker yields
// ErrInconsistentUserState; no lifecycle transition produces one.
func ResolveUserStatus(u *User) (UserStatus, error) {
	hasClerk := u.ClerkID != nil && *u.ClerkID != ""
	hasToken := u.InvitationToken != nil && *u.InvitationToken != ""

	switch {
	case u.IsActive:
		return UserStatusActive, nil
	case !hasClerk && hasToken:
		return UserStatusInvitationPending, nil
	case hasClerk && !hasToken:
		return UserStatusDeactivated, nil
	default:
		return "", appErrors.Clone(appErrors.ErrInconsistentUserState, "user "+u.ID+" has an unresolvable status")
	}
}

// UserView decorates a user with its derived status for responses.
type UserView struct {
	User
	Status UserStatus `json:"status,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role         *UserRole
	Active       *bool
	FoundationID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
