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

const invitationColumns = `id, email, full_name, role, foundation_id, user_id, status, invited_by, sent_at, accepted_at, revoked_at, created_at`

// InvitationRepository persists invitations and the placeholder users they own.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository constructs the repository.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GetByID fetches an invitation.
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindPendingByEmail returns the pending invitation for a lowercased email.
func (r *InvitationRepository) FindPendingByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	return r.findOne(ctx, "email = $1 AND status = 'pending'", strings.ToLower(strings.TrimSpace(email)))
}

func (r *InvitationRepository) findOne(ctx context.Context, cond string, arg interface{}) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE ` + cond + ` LIMIT 1`
	var inv models.Invitation
	if err := r.db.GetContext(ctx, &inv, query, arg); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	return &inv, nil
}

// ListPending returns pending invitations, oldest first.
func (r *InvitationRepository) ListPending(ctx context.Context) ([]models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE status = 'pending' ORDER BY sent_at`
	var rows []models.Invitation
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return rows, nil
}

// CreateWithPlaceholder inserts the placeholder user, the invitation, its email and audit entry atomically.
func (r *InvitationRepository) CreateWithPlaceholder(ctx context.Context, placeholder *models.User, inv *models.Invitation, email *models.Notification, audit *models.AuditLog) error {
	return inTx(ctx, r.db, "create invitation", func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, placeholder); err != nil {
			return err
		}
		inv.UserID = &placeholder.ID
		if inv.ID == "" {
			inv.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if inv.CreatedAt.IsZero() {
			inv.CreatedAt = now
		}
		if inv.SentAt.IsZero() {
			inv.SentAt = now
		}
		inv.Email = strings.ToLower(strings.TrimSpace(inv.Email))
		inv.Status = models.InvitationPending
		const query = `INSERT INTO invitations (id, email, full_name, role, foundation_id, user_id, status, invited_by, sent_at, created_at) VALUES (:id, :email, :full_name, :role, :foundation_id, :user_id, :status, :invited_by, :sent_at, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, inv); err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
		return r.sideEffects(ctx, tx, email, audit)
	})
}

// Resend refreshes sent_at on the pending invitation and enqueues a new email.
func (r *InvitationRepository) Resend(ctx context.Context, id string, sentAt time.Time, email *models.Notification, audit *models.AuditLog) error {
	return inTx(ctx, r.db, "resend invitation", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE invitations SET sent_at = $2 WHERE id = $1 AND status = 'pending'`, id, sentAt)
		if err != nil {
			return fmt.Errorf("resend invitation: %w", err)
		}
		if err := expectOne(res, "resend invitation"); err != nil {
			return err
		}
		return r.sideEffects(ctx, tx, email, audit)
	})
}

// Revoke marks the invitation revoked and removes its never-activated placeholder user.
func (r *InvitationRepository) Revoke(ctx context.Context, inv *models.Invitation, revokedAt time.Time, audit *models.AuditLog) error {
	return inTx(ctx, r.db, "revoke invitation", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE invitations SET status = 'revoked', revoked_at = $2, user_id = NULL WHERE id = $1 AND status = 'pending'`, inv.ID, revokedAt)
		if err != nil {
			return fmt.Errorf("revoke invitation: %w", err)
		}
		if err := expectOne(res, "revoke invitation"); err != nil {
			return err
		}
		if inv.UserID != nil {
			const del = `DELETE FROM users WHERE id = $1 AND clerk_id IS NULL AND is_active = FALSE`
			if _, err := tx.ExecContext(ctx, del, *inv.UserID); err != nil {
				return fmt.Errorf("remove placeholder user: %w", err)
			}
		}
		return r.sideEffects(ctx, tx, nil, audit)
	})
}

// Accept activates the placeholder user for an identity-provider account and closes the invitation.
func (r *InvitationRepository) Accept(ctx context.Context, inv *models.Invitation, user *models.User, acceptedAt time.Time, welcome *models.Notification, audit *models.AuditLog) error {
	return inTx(ctx, r.db, "accept invitation", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE invitations SET status = 'accepted', accepted_at = $2 WHERE id = $1 AND status = 'pending'`, inv.ID, acceptedAt)
		if err != nil {
			return fmt.Errorf("accept invitation: %w", err)
		}
		if err := expectOne(res, "accept invitation"); err != nil {
			return err
		}
		user.UpdatedAt = acceptedAt
		const activate = `UPDATE users SET email = :email, full_name = :full_name, phone = :phone, role = :role, foundation_id = :foundation_id, clerk_id = :clerk_id, invitation_token = NULL, is_active = TRUE, updated_at = :updated_at WHERE id = :id`
		res, err = tx.NamedExecContext(ctx, activate, user)
		if err != nil {
			return fmt.Errorf("activate invited user: %w", err)
		}
		if err := expectOne(res, "activate invited user"); err != nil {
			return err
		}
		user.InvitationToken = nil
		user.IsActive = true
		return r.sideEffects(ctx, tx, welcome, audit)
	})
}

func (r *InvitationRepository) sideEffects(ctx context.Context, tx *sqlx.Tx, n *models.Notification, audit *models.AuditLog) error {
	if n != nil {
		if err := insertNotification(ctx, tx, n); err != nil {
			return err
		}
	}
	if audit != nil {
		return insertAuditLog(ctx, tx, audit)
	}
	return nil
}
