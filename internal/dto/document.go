package dto

import (
	"time"

	"github.com/noah-isme/foundation-api/internal/models"
)

// UploadURLRequest asks for a one-time upload URL.
type UploadURLRequest struct {
	FileName  string `json:"file_name" validate:"required,max=255"`
	MIMEType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

// UploadURLResponse returns where and until when the file may be uploaded.
type UploadURLResponse struct {
	StorageID string    `json:"storage_id"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadResult acknowledges a stored upload.
type UploadResult struct {
	StorageID string `json:"storage_id"`
	SizeBytes int64  `json:"size_bytes"`
	MIMEType  string `json:"mime_type"`
}

// RegisterDocumentRequest attaches an uploaded file to an application or beneficiary.
type RegisterDocumentRequest struct {
	ApplicationID *string `json:"application_id,omitempty" validate:"required_without=BeneficiaryID,omitempty,uuid"`
	BeneficiaryID *string `json:"beneficiary_id,omitempty" validate:"required_without=ApplicationID,omitempty,uuid"`
	DocumentType  string  `json:"document_type" validate:"required,max=64"`
	StorageID     string  `json:"storage_id" validate:"required,uuid"`
	FileName      string  `json:"file_name" validate:"required,max=255"`
}

// DownloadURLResponse returns a signed download link.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReviewDocumentRequest approves or rejects a document.
type ReviewDocumentRequest struct {
	Status models.DocumentStatus `json:"status" validate:"required,oneof=approved rejected"`
	Note   string                `json:"note" validate:"max=1000"`
}

// BulkReviewDocumentsRequest applies one review decision to many documents.
type BulkReviewDocumentsRequest struct {
	IDs    []string              `json:"ids" validate:"required,min=1,max=200,dive,uuid"`
	Status models.DocumentStatus `json:"status" validate:"required,oneof=approved rejected"`
	Note   string                `json:"note" validate:"max=1000"`
}
