package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/foundation-api/internal/models"
)

const applicationColumns = `id, applicant_user_id, foundation_id, support_type, status, reviewer_id, personal, guardian, education, financial, essay, priority_score, submitted_at, updated_at`

const reviewColumns = `id, application_id, reviewer_id, from_status, to_status, comments, internal_notes, scores, override, created_at`

// ApplicationRepository persists applications and their review history.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a submitted application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = now
	}
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApplicationSubmitted
	}
	const query = `INSERT INTO applications (id, applicant_user_id, foundation_id, support_type, status, reviewer_id, personal, guardian, education, financial, essay, priority_score, submitted_at, updated_at) VALUES (:id, :applicant_user_id, :foundation_id, :support_type, :status, :reviewer_id, :personal, :guardian, :education, :financial, :essay, :priority_score, :submitted_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID fetches an application without its reviews.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}

// ListReviews returns the review history of an application, oldest first.
func (r *ApplicationRepository) ListReviews(ctx context.Context, applicationID string) ([]models.ApplicationReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM application_reviews WHERE application_id = $1 ORDER BY created_at`
	var reviews []models.ApplicationReview
	if err := r.db.SelectContext(ctx, &reviews, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application reviews: %w", err)
	}
	return reviews, nil
}

// List returns applications matching the filter with the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	where := &whereBuilder{}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.SupportType != "" {
		where.add("support_type = $%d", filter.SupportType)
	}
	if filter.ReviewerID != "" {
		where.add("reviewer_id = $%d", filter.ReviewerID)
	}
	if filter.ApplicantUserID != "" {
		where.add("applicant_user_id = $%d", filter.ApplicantUserID)
	}
	if filter.FoundationID != "" {
		where.add("foundation_id = $%d", filter.FoundationID)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM applications%s ORDER BY priority_score DESC NULLS LAST, submitted_at LIMIT %d OFFSET %d", applicationColumns, where.clause(), limit, offset)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// CountOpenByApplicant counts the applicant's undecided applications for a support type.
func (r *ApplicationRepository) CountOpenByApplicant(ctx context.Context, applicantID, supportType string) (int, error) {
	const query = `SELECT COUNT(*) FROM applications WHERE applicant_user_id = $1 AND support_type = $2 AND status NOT IN ('approved', 'rejected')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, applicantID, supportType); err != nil {
		return 0, fmt.Errorf("count open applications: %w", err)
	}
	return count, nil
}

// AssignReviewer sets the reviewer and, for submitted applications, moves them under review.
func (r *ApplicationRepository) AssignReviewer(ctx context.Context, id, reviewerID string, at time.Time) error {
	const query = `UPDATE applications SET reviewer_id = $2, status = CASE WHEN status = 'submitted' THEN 'under_review' ELSE status END, updated_at = $3 WHERE id = $1 AND status IN ('submitted', 'under_review', 'waitlisted')`
	res, err := r.db.ExecContext(ctx, query, id, reviewerID, at)
	if err != nil {
		return fmt.Errorf("assign reviewer: %w", err)
	}
	return expectOne(res, "assign reviewer")
}

// ReviewChange is the state written by one review decision.
type ReviewChange struct {
	Review        *models.ApplicationReview
	ReviewerID    *string
	PriorityScore *float64
	Audit         *models.AuditLog
}

// ApplyReview appends the review row and moves the application from
// review.FromStatus to review.ToStatus in one transaction. sql.ErrNoRows means
// the status changed underneath the caller.
func (r *ApplicationRepository) ApplyReview(ctx context.Context, change ReviewChange) error {
	review := change.Review
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	return inTx(ctx, r.db, "apply review", func(tx *sqlx.Tx) error {
		const update = `UPDATE applications SET status = $3, reviewer_id = COALESCE($4, reviewer_id), priority_score = COALESCE($5, priority_score), updated_at = $6 WHERE id = $1 AND status = $2`
		res, err := tx.ExecContext(ctx, update, review.ApplicationID, review.FromStatus, review.ToStatus, change.ReviewerID, change.PriorityScore, review.CreatedAt)
		if err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		if err := expectOne(res, "update application status"); err != nil {
			return err
		}
		const insert = `INSERT INTO application_reviews (id, application_id, reviewer_id, from_status, to_status, comments, internal_notes, scores, override, created_at) VALUES (:id, :application_id, :reviewer_id, :from_status, :to_status, :comments, :internal_notes, :scores, :override, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, review); err != nil {
			return fmt.Errorf("insert application review: %w", err)
		}
		if change.Audit != nil {
			return insertAuditLog(ctx, tx, change.Audit)
		}
		return nil
	})
}
