package models

import "time"

// InvitationStatus tracks an invitation from issue to acceptance or revocation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
)

// Invitation is an admin-issued offer to join with a preassigned role.
type Invitation struct {
	ID           string           `db:"id" json:"id"`
	Email        string           `db:"email" json:"email"`
	FullName     string           `db:"full_name" json:"full_name"`
	Role         UserRole         `db:"role" json:"role"`
	FoundationID *string          `db:"foundation_id" json:"foundation_id,omitempty"`
	UserID       *string          `db:"user_id" json:"user_id,omitempty"`
	Status       InvitationStatus `db:"status" json:"status"`
	InvitedBy    string           `db:"invited_by" json:"invited_by"`
	SentAt       time.Time        `db:"sent_at" json:"sent_at"`
	AcceptedAt   *time.Time       `db:"accepted_at" json:"accepted_at,omitempty"`
	RevokedAt    *time.Time       `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}
