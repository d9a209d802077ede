package models

import "time"

// DocumentStatus is the review state of an uploaded document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// Document is metadata for an uploaded file attached to an application or beneficiary.
type Document struct {
	ID            string         `db:"id" json:"id"`
	ApplicationID *string        `db:"application_id" json:"application_id,omitempty"`
	BeneficiaryID *string        `db:"beneficiary_id" json:"beneficiary_id,omitempty"`
	DocumentType  string         `db:"document_type" json:"document_type"`
	StorageID     string         `db:"storage_id" json:"storage_id"`
	FileName      string         `db:"file_name" json:"file_name"`
	MIMEType      string         `db:"mime_type" json:"mime_type"`
	SizeBytes     int64          `db:"size_bytes" json:"size_bytes"`
	Status        DocumentStatus `db:"status" json:"status"`
	ReviewNote    *string        `db:"review_note" json:"review_note,omitempty"`
	ReviewedBy    *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	UploadedBy    string         `db:"uploaded_by" json:"uploaded_by"`
	ExpiresAt     *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// Expired reports whether the document's validity lapsed before at.
func (d *Document) Expired(at time.Time) bool {
	return d.ExpiresAt != nil && at.After(*d.ExpiresAt)
}
