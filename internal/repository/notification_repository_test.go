package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
)

func TestClaimDueLeasesRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "recipient_user_id", "channel", "recipient", "template", "subject", "body", "status", "attempts", "last_error", "scheduled_at", "sent_at", "created_at"}).
		AddRow("n-1", nil, "email", "ada@example.com", "welcome", "Welcome", "Hello", "pending", 0, nil, now.Add(time.Minute), nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(now, now.Add(time.Minute), 10).
		WillReturnRows(rows)

	claimed, err := repo.ClaimDue(context.Background(), now, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.ChannelEmail, claimed[0].Channel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailureFinal(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	retry := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET attempts = attempts + 1")).
		WithArgs("n-1", "smtp down", retry, models.NotificationFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordFailure(context.Background(), "n-1", "smtp down", retry, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeliveredRequiresSentRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET status = 'delivered'")).
		WithArgs("n-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.MarkDelivered(context.Background(), "n-1"), sql.ErrNoRows)
}

func TestNotificationGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE id = $1")).
		WithArgs("n-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_user_id", "channel", "recipient", "template", "subject", "body", "status", "attempts", "last_error", "scheduled_at", "sent_at", "created_at"}).
			AddRow("n-1", nil, "sms", "+2348000000000", "custom", "", "Hi", "pending", 2, "carrier down", now, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	n, err := repo.GetByID(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 2, n.Attempts)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
