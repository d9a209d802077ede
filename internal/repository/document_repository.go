package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/foundation-api/internal/models"
)

const documentColumns = `id, application_id, beneficiary_id, document_type, storage_id, file_name, mime_type, size_bytes, status, review_note, reviewed_by, reviewed_at, uploaded_by, expires_at, created_at`

// DocumentRepository persists uploaded document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create registers document metadata.
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = models.DocumentPending
	}
	const query = `INSERT INTO documents (id, application_id, beneficiary_id, document_type, storage_id, file_name, mime_type, size_bytes, status, uploaded_by, expires_at, created_at) VALUES (:id, :application_id, :beneficiary_id, :document_type, :storage_id, :file_name, :mime_type, :size_bytes, :status, :uploaded_by, :expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID fetches a document.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var d models.Document
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// ListByApplication returns an application's documents, newest first.
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE application_id = $1 ORDER BY created_at DESC`
	var rows []models.Document
	if err := r.db.SelectContext(ctx, &rows, query, applicationID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return rows, nil
}

// Review records a reviewer's decision.
func (r *DocumentRepository) Review(ctx context.Context, id string, status models.DocumentStatus, note *string, reviewerID string, at time.Time) error {
	const query = `UPDATE documents SET status = $2, review_note = $3, reviewed_by = $4, reviewed_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, note, reviewerID, at)
	if err != nil {
		return fmt.Errorf("review document: %w", err)
	}
	return expectOne(res, "review document")
}

// ExistingStorageIDs returns which of ids are referenced by a document.
func (r *DocumentRepository) ExistingStorageIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var rows []string
	if err := r.db.SelectContext(ctx, &rows, `SELECT storage_id::text FROM documents WHERE storage_id::text = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("lookup storage ids: %w", err)
	}
	for _, id := range rows {
		found[id] = true
	}
	return found, nil
}
