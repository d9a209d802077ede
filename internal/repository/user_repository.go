package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/foundation-api/internal/models"
)

const userColumns = `id, email, full_name, phone, role, foundation_id, clerk_id, invitation_token, is_active, is_blocked, deactivation_reason, deactivated_at, deactivated_by, last_login, created_at, updated_at`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = $1", id, "find user by id")
}

// FindByEmail returns a user by case-insensitive email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "LOWER(email) = LOWER($1)", email, "find user by email")
}

// FindByClerkID returns the user linked to an identity-provider account.
func (r *UserRepository) FindByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	return r.findOne(ctx, "clerk_id = $1", clerkID, "find user by clerk id")
}

func (r *UserRepository) findOne(ctx context.Context, cond string, arg interface{}, what string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + cond + ` LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	where := &whereBuilder{}
	if filter.Role != nil {
		where.add("role = $%d", *filter.Role)
	}
	if filter.Active != nil {
		where.add("is_active = $%d", *filter.Active)
	}
	if filter.FoundationID != "" {
		where.add("foundation_id = $%d", filter.FoundationID)
	}
	if filter.Search != "" {
		where.args = append(where.args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(where.args)
		where.conditions = append(where.conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(full_name) LIKE $%d)", n, n))
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"email":      true,
		"created_at": true,
		"updated_at": true,
		"full_name":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM users%s ORDER BY %s %s LIMIT %d OFFSET %d", userColumns, where.clause(), sortBy, sortOrder, limit, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Create inserts a user row, optionally alongside an audit entry.
func (r *UserRepository) Create(ctx context.Context, user *models.User, audit *models.AuditLog) error {
	return inTx(ctx, r.db, "create user", func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		if audit != nil {
			return insertAuditLog(ctx, tx, audit)
		}
		return nil
	})
}

// SyncProfile refreshes identity-provider owned fields for the user holding clerkID.
func (r *UserRepository) SyncProfile(ctx context.Context, clerkID, email, fullName string, phone *string) error {
	const query = `UPDATE users SET email = $2, full_name = $3, phone = $4, updated_at = $5 WHERE clerk_id = $1`
	res, err := r.db.ExecContext(ctx, query, clerkID, email, fullName, phone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sync user profile: %w", err)
	}
	return expectOne(res, "sync user profile")
}

// UpdateLifecycle persists role and activation fields together with the audit
// entry describing the change.
func (r *UserRepository) UpdateLifecycle(ctx context.Context, user *models.User, audit *models.AuditLog) error {
	user.UpdatedAt = time.Now().UTC()
	return inTx(ctx, r.db, "update user lifecycle", func(tx *sqlx.Tx) error {
		const query = `UPDATE users SET role = :role, foundation_id = :foundation_id, clerk_id = :clerk_id, invitation_token = :invitation_token, is_active = :is_active, is_blocked = :is_blocked, deactivation_reason = :deactivation_reason, deactivated_at = :deactivated_at, deactivated_by = :deactivated_by, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, user)
		if err != nil {
			return fmt.Errorf("update user lifecycle: %w", err)
		}
		if err := expectOne(res, "update user lifecycle"); err != nil {
			return err
		}
		if audit != nil {
			return insertAuditLog(ctx, tx, audit)
		}
		return nil
	})
}

// TouchLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, q DBTX, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	const query = `INSERT INTO users (id, email, full_name, phone, role, foundation_id, clerk_id, invitation_token, is_active, is_blocked, created_at, updated_at) VALUES (:id, :email, :full_name, :phone, :role, :foundation_id, :clerk_id, :invitation_token, :is_active, :is_blocked, :created_at, :updated_at)`
	if _, err := q.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
