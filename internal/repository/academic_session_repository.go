package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/foundation-api/internal/models"
)

const sessionColumns = `id, beneficiary_id, session_name, term, academic_level, grade, attendance_rate, status, start_date, end_date, created_at`

// AcademicSessionRepository persists beneficiaries' academic sessions.
type AcademicSessionRepository struct {
	db *sqlx.DB
}

// NewAcademicSessionRepository constructs the repository.
func NewAcademicSessionRepository(db *sqlx.DB) *AcademicSessionRepository {
	return &AcademicSessionRepository{db: db}
}

// Create inserts a session.
func (r *AcademicSessionRepository) Create(ctx context.Context, s *models.AcademicSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO academic_sessions (id, beneficiary_id, session_name, term, academic_level, grade, attendance_rate, status, start_date, end_date, created_at) VALUES (:id, :beneficiary_id, :session_name, :term, :academic_level, :grade, :attendance_rate, :status, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create academic session: %w", err)
	}
	return nil
}

// GetByID fetches a session.
func (r *AcademicSessionRepository) GetByID(ctx context.Context, id string) (*models.AcademicSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM academic_sessions WHERE id = $1`
	var s models.AcademicSession
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get academic session: %w", err)
	}
	return &s, nil
}

// ListByBeneficiary returns a beneficiary's sessions, most recent first.
func (r *AcademicSessionRepository) ListByBeneficiary(ctx context.Context, beneficiaryID string) ([]models.AcademicSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM academic_sessions WHERE beneficiary_id = $1 ORDER BY start_date DESC`
	var rows []models.AcademicSession
	if err := r.db.SelectContext(ctx, &rows, query, beneficiaryID); err != nil {
		return nil, fmt.Errorf("list academic sessions: %w", err)
	}
	return rows, nil
}
