package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/foundation-api/internal/models"
)

const supportConfigColumns = `support_type, display_name, description, eligibility_rules, amount_config, required_documents, application_settings, performance_requirements, priority_weights, is_active, created_by, updated_by, created_at, updated_at`

// SupportConfigRepository persists support configurations. Rows are never deleted.
type SupportConfigRepository struct {
	db *sqlx.DB
}

// NewSupportConfigRepository constructs the repository.
func NewSupportConfigRepository(db *sqlx.DB) *SupportConfigRepository {
	return &SupportConfigRepository{db: db}
}

// Get returns the configuration keyed by supportType regardless of its active flag.
func (r *SupportConfigRepository) Get(ctx context.Context, supportType string) (*models.SupportConfig, error) {
	query := `SELECT ` + supportConfigColumns + ` FROM support_configs WHERE support_type = $1`
	var cfg models.SupportConfig
	if err := r.db.GetContext(ctx, &cfg, query, supportType); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get support config: %w", err)
	}
	return &cfg, nil
}

// List returns configurations ordered by display name.
func (r *SupportConfigRepository) List(ctx context.Context, includeInactive bool) ([]models.SupportConfig, error) {
	query := `SELECT ` + supportConfigColumns + ` FROM support_configs`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY display_name`
	var cfgs []models.SupportConfig
	if err := r.db.SelectContext(ctx, &cfgs, query); err != nil {
		return nil, fmt.Errorf("list support configs: %w", err)
	}
	return cfgs, nil
}

// Create inserts a new configuration.
func (r *SupportConfigRepository) Create(ctx context.Context, cfg *models.SupportConfig) error {
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	const query = `INSERT INTO support_configs (support_type, display_name, description, eligibility_rules, amount_config, required_documents, application_settings, performance_requirements, priority_weights, is_active, created_by, updated_by, created_at, updated_at) VALUES (:support_type, :display_name, :description, :eligibility_rules, :amount_config, :required_documents, :application_settings, :performance_requirements, :priority_weights, :is_active, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("create support config: %w", err)
	}
	return nil
}

// Update replaces the mutable fields. support_type is the immutable key.
func (r *SupportConfigRepository) Update(ctx context.Context, cfg *models.SupportConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `UPDATE support_configs SET display_name = :display_name, description = :description, eligibility_rules = :eligibility_rules, amount_config = :amount_config, required_documents = :required_documents, application_settings = :application_settings, performance_requirements = :performance_requirements, priority_weights = :priority_weights, updated_by = :updated_by, updated_at = :updated_at WHERE support_type = :support_type`
	res, err := r.db.NamedExecContext(ctx, query, cfg)
	if err != nil {
		return fmt.Errorf("update support config: %w", err)
	}
	return expectOne(res, "update support config")
}

// SetActive enables or disables a configuration.
func (r *SupportConfigRepository) SetActive(ctx context.Context, supportType string, active bool, actorID string) error {
	const query = `UPDATE support_configs SET is_active = $2, updated_by = $3, updated_at = $4 WHERE support_type = $1`
	res, err := r.db.ExecContext(ctx, query, supportType, active, actorID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set support config active: %w", err)
	}
	return expectOne(res, "set support config active")
}

// Upsert inserts or replaces configurations in one transaction. Used by seeding.
func (r *SupportConfigRepository) Upsert(ctx context.Context, cfgs []models.SupportConfig) error {
	if len(cfgs) == 0 {
		return nil
	}
	const query = `INSERT INTO support_configs (support_type, display_name, description, eligibility_rules, amount_config, required_documents, application_settings, performance_requirements, priority_weights, is_active, created_by, updated_by, created_at, updated_at)
VALUES (:support_type, :display_name, :description, :eligibility_rules, :amount_config, :required_documents, :application_settings, :performance_requirements, :priority_weights, :is_active, :created_by, :updated_by, :created_at, :updated_at)
ON CONFLICT (support_type)
DO UPDATE SET display_name = EXCLUDED.display_name, description = EXCLUDED.description, eligibility_rules = EXCLUDED.eligibility_rules,
              amount_config = EXCLUDED.amount_config, required_documents = EXCLUDED.required_documents,
              application_settings = EXCLUDED.application_settings, performance_requirements = EXCLUDED.performance_requirements,
              priority_weights = EXCLUDED.priority_weights, is_active = EXCLUDED.is_active, updated_by = EXCLUDED.updated_by,
              updated_at = EXCLUDED.updated_at`
	return inTx(ctx, r.db, "upsert support configs", func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for i := range cfgs {
			cfgs[i].CreatedAt = now
			cfgs[i].UpdatedAt = now
			if _, err := tx.NamedExecContext(ctx, query, cfgs[i]); err != nil {
				return fmt.Errorf("upsert support config %s: %w", cfgs[i].SupportType, err)
			}
		}
		return nil
	})
}
