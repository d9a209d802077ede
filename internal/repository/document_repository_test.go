package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExistingStorageIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE storage_id::text = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"storage_id"}).AddRow("s-1"))

	found, err := repo.ExistingStorageIDs(context.Background(), []string{"s-1", "s-2"})
	require.NoError(t, err)
	assert.True(t, found["s-1"])
	assert.False(t, found["s-2"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingStorageIDsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	found, err := repo.ExistingStorageIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}
