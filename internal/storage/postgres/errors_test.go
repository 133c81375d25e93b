package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"nestor-insights/internal/storage"
)

func TestStorageError(t *testing.T) {
	assert.Equal(t, storage.ErrNotFound, storageError("get assessment", pgx.ErrNoRows))

	dup := storageError("upsert assessment", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "assessments_pkey"})
	assert.ErrorIs(t, dup, storage.ErrInvalidInput)
	assert.Contains(t, dup.Error(), "assessments_pkey")

	other := storageError("list patterns", &pgconn.PgError{Code: "40001"})
	assert.NotErrorIs(t, other, storage.ErrInvalidInput)
	assert.Contains(t, other.Error(), "list patterns")

	cause := errors.New("connection reset")
	assert.ErrorIs(t, storageError("merge patterns", cause), cause)
}
