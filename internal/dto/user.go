package dto

import (
	"time"

	"github.com/noah-isme/foundation-api/internal/models"
)

// InviteUserRequest invites someone to join with a preassigned role.
type InviteUserRequest struct {
	Email        string          `json:"email" validate:"required,email"`
	FullName     string          `json:"full_name" validate:"required,max=160"`
	Role         models.UserRole `json:"role" validate:"required,oneof=super_admin admin reviewer beneficiary guardian"`
	FoundationID *string         `json:"foundation_id,omitempty" validate:"omitempty,uuid"`
}

// ChangeRoleRequest assigns a new role.
type ChangeRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=super_admin admin reviewer beneficiary guardian"`
}

// ReasonRequest carries the mandatory justification for deactivate, block and delete.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// UserQuery mirrors supported listing filters.
type UserQuery struct {
	Role     string `form:"role"`
	Active   *bool  `form:"active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// TokenResponse carries an issued API bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IssueTokenRequest asks for an API token on behalf of a user.
type IssueTokenRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}
