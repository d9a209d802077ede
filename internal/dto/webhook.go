package dto

import (
	"encoding/json"
	"strings"
)

// Identity-provider event types.
const (
	ClerkUserCreated = "user.created"
	ClerkUserUpdated = "user.updated"
	ClerkUserDeleted = "user.deleted"
)

// ClerkEvent is the webhook envelope. Data stays raw until the type is known.
type ClerkEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// ClerkEmailAddress is one address on an identity-provider user.
type ClerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// ClerkPhoneNumber is one phone number on an identity-provider user.
type ClerkPhoneNumber struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

// ClerkUser is the subset of the identity-provider user object this service reads.
type ClerkUser struct {
	ID                    string              `json:"id"`
	EmailAddresses        []ClerkEmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string              `json:"primary_email_address_id"`
	PhoneNumbers          []ClerkPhoneNumber  `json:"phone_numbers"`
	PrimaryPhoneNumberID  string              `json:"primary_phone_number_id"`
	FirstName             *string             `json:"first_name"`
	LastName              *string             `json:"last_name"`
	Deleted               bool                `json:"deleted,omitempty"`
}

// PrimaryEmail returns the lowercased primary address, falling back to the first one.
func (u ClerkUser) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return strings.ToLower(strings.TrimSpace(e.EmailAddress))
		}
	}
	if len(u.EmailAddresses) > 0 {
		return strings.ToLower(strings.TrimSpace(u.EmailAddresses[0].EmailAddress))
	}
	return ""
}

// PrimaryPhone returns the primary phone number if any.
func (u ClerkUser) PrimaryPhone() string {
	for _, p := range u.PhoneNumbers {
		if p.ID == u.PrimaryPhoneNumberID {
			return p.PhoneNumber
		}
	}
	if len(u.PhoneNumbers) > 0 {
		return u.PhoneNumbers[0].PhoneNumber
	}
	return ""
}

// FullName joins the first and last names.
func (u ClerkUser) FullName() string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{u.FirstName, u.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}
