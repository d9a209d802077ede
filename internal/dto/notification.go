package dto

import "github.com/noah-isme/foundation-api/internal/models"

// BulkRecipient is one addressee of a bulk send.
type BulkRecipient struct {
	UserID  *string `json:"user_id,omitempty" validate:"omitempty,uuid"`
	Address string  `json:"address" validate:"required,max=254"`
}

// BulkSendRequest enqueues the same message for many recipients.
type BulkSendRequest struct {
	Channel    models.NotificationChannel `json:"channel" validate:"required,oneof=email sms"`
	Subject    string                     `json:"subject" validate:"max=200"`
	Body       string                     `json:"body" validate:"required,max=5000"`
	Recipients []BulkRecipient            `json:"recipients" validate:"required,min=1,max=500,dive"`
}
