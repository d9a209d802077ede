package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/foundation-api/internal/models"
)

const notificationColumns = `id, recipient_user_id, channel, recipient, template, subject, body, status, attempts, last_error, scheduled_at, sent_at, created_at`

// NotificationRepository persists the notification outbox.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Enqueue inserts a pending outbox row.
func (r *NotificationRepository) Enqueue(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, r.db, n)
}

// GetByID fetches one outbox row.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// ClaimDue leases up to limit pending rows that are due, pushing their
// scheduled_at forward by lease so concurrent pollers skip them.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `UPDATE notifications SET scheduled_at = $2
WHERE id IN (
    SELECT id FROM notifications
    WHERE status = 'pending' AND scheduled_at <= $1
    ORDER BY scheduled_at
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + notificationColumns
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query, now, now.Add(lease), limit); err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}
	return rows, nil
}

// MarkSent records a successful hand-off to the provider.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE notifications SET status = 'sent', sent_at = $2, attempts = attempts + 1, last_error = NULL WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return expectOne(res, "mark notification sent")
}

// MarkDelivered records a provider delivery confirmation.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET status = 'delivered' WHERE id = $1 AND status IN ('sent', 'delivered')`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark notification delivered: %w", err)
	}
	return expectOne(res, "mark notification delivered")
}

// RecordFailure bumps the attempt counter. When final is set the row becomes
// failed; otherwise it stays pending until retryAt.
func (r *NotificationRepository) RecordFailure(ctx context.Context, id, reason string, retryAt time.Time, final bool) error {
	status := models.NotificationPending
	if final {
		status = models.NotificationFailed
	}
	const query = `UPDATE notifications SET attempts = attempts + 1, last_error = $2, scheduled_at = $3, status = $4 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, reason, retryAt, status)
	if err != nil {
		return fmt.Errorf("record notification failure: %w", err)
	}
	return expectOne(res, "record notification failure")
}

// List returns outbox rows matching the filter, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	where := &whereBuilder{}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.Channel != "" {
		where.add("channel = $%d", filter.Channel)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, where.clause(), limit, offset)
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return rows, total, nil
}

func insertNotification(ctx context.Context, q DBTX, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.ScheduledAt.IsZero() {
		n.ScheduledAt = now
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	const query = `INSERT INTO notifications (id, recipient_user_id, channel, recipient, template, subject, body, status, attempts, last_error, scheduled_at, sent_at, created_at) VALUES (:id, :recipient_user_id, :channel, :recipient, :template, :subject, :body, :status, :attempts, :last_error, :scheduled_at, :sent_at, :created_at)`
	if _, err := q.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
