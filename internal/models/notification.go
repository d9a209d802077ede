package models

import "time"

// NotificationChannel is the delivery medium of an outbox message.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// NotificationStatus tracks outbox delivery.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationSent      NotificationStatus = "sent"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// Notification templates.
const (
	TemplateWelcome    = "welcome"
	TemplateInvitation = "invitation"
	TemplateCustom     = "custom"
)

// Notification is one outbox row awaiting or having completed delivery.
type Notification struct {
	ID              string              `db:"id" json:"id"`
	RecipientUserID *string             `db:"recipient_user_id" json:"recipient_user_id,omitempty"`
	Channel         NotificationChannel `db:"channel" json:"channel"`
	Recipient       string              `db:"recipient" json:"recipient"`
	Template        string              `db:"template" json:"template"`
	Subject         string              `db:"subject" json:"subject"`
	Body            string              `db:"body" json:"body"`
	Status          NotificationStatus  `db:"status" json:"status"`
	Attempts        int                 `db:"attempts" json:"attempts"`
	LastError       *string             `db:"last_error" json:"last_error,omitempty"`
	ScheduledAt     time.Time           `db:"scheduled_at" json:"scheduled_at"`
	SentAt          *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
}

// NotificationFilter captures listing criteria for the outbox.
type NotificationFilter struct {
	Status   NotificationStatus
	Channel  NotificationChannel
	Page     int
	PageSize int
}
