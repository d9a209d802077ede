package models

import "time"

// RiskLevel classifies how sensitive an audited action is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Audit actions.
const (
	AuditActionBeneficiaryCreate    = "BENEFICIARY_CREATE"
	AuditActionBeneficiaryStatus    = "BENEFICIARY_STATUS_CHANGE"
	AuditActionApplicationOverride  = "APPLICATION_STATUS_OVERRIDE"
	AuditActionSupportConfigCreate  = "SUPPORT_CONFIG_CREATE"
	AuditActionSupportConfigUpdate  = "SUPPORT_CONFIG_UPDATE"
	AuditActionSupportConfigDisable = "SUPPORT_CONFIG_DISABLE"
	AuditActionSupportConfigEnable  = "SUPPORT_CONFIG_ENABLE"
	AuditActionUserInvite           = "USER_INVITE"
	AuditActionInvitationResend     = "INVITATION_RESEND"
	AuditActionInvitationRevoke     = "INVITATION_REVOKE"
	AuditActionInvitationAccept     = "INVITATION_ACCEPT"
	AuditActionUserRoleChange       = "USER_ROLE_CHANGE"
	AuditActionUserDeactivate       = "USER_DEACTIVATE"
	AuditActionUserReactivate       = "USER_REACTIVATE"
	AuditActionUserBlock            = "USER_BLOCK"
	AuditActionUserDelete           = "USER_DELETE"
	AuditActionUserDeletedUpstream  = "USER_DELETED_UPSTREAM"
	AuditActionDocumentReview       = "DOCUMENT_REVIEW"
)

// Audit resources.
const (
	AuditResourceUser          = "user"
	AuditResourceInvitation    = "invitation"
	AuditResourceApplication   = "application"
	AuditResourceBeneficiary   = "beneficiary"
	AuditResourceSupportConfig = "support_config"
	AuditResourceDocument      = "document"
)

// AuditLog represents an append-only audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	RiskLevel  RiskLevel `db:"risk_level" json:"risk_level"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
