package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/foundation-api/internal/models"
)

const beneficiaryColumns = `id, application_id, user_id, foundation_id, support_type, academic_level, school_type, approved_amount, currency, frequency, status, start_date, created_by, created_at, updated_at`

// BeneficiaryRepository persists beneficiaries.
type BeneficiaryRepository struct {
	db *sqlx.DB
}

// NewBeneficiaryRepository constructs the repository.
func NewBeneficiaryRepository(db *sqlx.DB) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

// GetByID fetches a beneficiary.
func (r *BeneficiaryRepository) GetByID(ctx context.Context, id string) (*models.Beneficiary, error) {
	return r.findOne(ctx, r.db, "id = $1", id)
}

// FindByApplicationID returns the beneficiary created from an application.
func (r *BeneficiaryRepository) FindByApplicationID(ctx context.Context, applicationID string) (*models.Beneficiary, error) {
	return r.findOne(ctx, r.db, "application_id = $1", applicationID)
}

func (r *BeneficiaryRepository) findOne(ctx context.Context, q DBTX, cond string, arg interface{}) (*models.Beneficiary, error) {
	query := `SELECT ` + beneficiaryColumns + ` FROM beneficiaries WHERE ` + cond
	var b models.Beneficiary
	if err := q.GetContext(ctx, &b, query, arg); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get beneficiary: %w", err)
	}
	return &b, nil
}

// List returns beneficiaries matching the filter with the total count.
func (r *BeneficiaryRepository) List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error) {
	where := &whereBuilder{}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.SupportType != "" {
		where.add("support_type = $%d", filter.SupportType)
	}
	if filter.FoundationID != "" {
		where.add("foundation_id = $%d", filter.FoundationID)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM beneficiaries%s ORDER BY created_at DESC LIMIT %d OFFSET %d", beneficiaryColumns, where.clause(), limit, offset)
	var rows []models.Beneficiary
	if err := r.db.SelectContext(ctx, &rows, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list beneficiaries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM beneficiaries"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count beneficiaries: %w", err)
	}
	return rows, total, nil
}

// UpdateStatus moves a beneficiary from one status to another.
func (r *BeneficiaryRepository) UpdateStatus(ctx context.Context, id string, from, to models.BeneficiaryStatus) error {
	const query = `UPDATE beneficiaries SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update beneficiary status: %w", err)
	}
	return expectOne(res, "update beneficiary status")
}

// CreateFromApplication inserts the beneficiary together with its audit entry
// and welcome notification. When a beneficiary already exists for the
// application the existing row is returned with created=false and nothing else
// is written.
func (r *BeneficiaryRepository) CreateFromApplication(ctx context.Context, b *models.Beneficiary, audit *models.AuditLog, welcome *models.Notification) (*models.Beneficiary, bool, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	var (
		stored  *models.Beneficiary
		created bool
	)
	err := inTx(ctx, r.db, "create beneficiary", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO beneficiaries (id, application_id, user_id, foundation_id, support_type, academic_level, school_type, approved_amount, currency, frequency, status, start_date, created_by, created_at, updated_at) VALUES (:id, :application_id, :user_id, :foundation_id, :support_type, :academic_level, :school_type, :approved_amount, :currency, :frequency, :status, :start_date, :created_by, :created_at, :updated_at) ON CONFLICT (application_id) DO NOTHING`
		res, err := tx.NamedExecContext(ctx, insert, b)
		if err != nil {
			return fmt.Errorf("create beneficiary: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("create beneficiary rows affected: %w", err)
		}
		created = affected == 1

		stored, err = r.findOne(ctx, tx, "application_id = $1", b.ApplicationID)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		if audit != nil {
			id := stored.ID
			audit.ResourceID = &id
			if err := insertAuditLog(ctx, tx, audit); err != nil {
				return err
			}
		}
		if welcome != nil {
			return insertNotification(ctx, tx, welcome)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}
