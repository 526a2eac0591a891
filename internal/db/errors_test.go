package db

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "pgx no rows", err: pgx.ErrNoRows, target: ErrNotFound},
		{name: "sql no rows", err: sql.ErrNoRows, target: ErrNotFound},
		{name: "pg unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "announcement_ledger_pkey"}, target: ErrDuplicateKey},
		{name: "pg foreign key", err: &pgconn.PgError{Code: "23503"}, target: ErrForeignKeyViolation},
		{name: "pg check", err: &pgconn.PgError{Code: "23514"}, target: ErrCheckViolation},
		{name: "pg raise", err: &pgconn.PgError{Code: "P0001", Message: "append-only"}, target: ErrImmutableRecord},
		{name: "sqlite unique", err: errors.New("constraint failed: UNIQUE constraint failed: channels.channel_key (2067)"), target: ErrDuplicateKey},
		{name: "sqlite foreign key", err: errors.New("FOREIGN KEY constraint failed (787)"), target: ErrForeignKeyViolation},
		{name: "sqlite check", err: errors.New("CHECK constraint failed: plan (275)"), target: ErrCheckViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(tt.err, "op")
			assert.ErrorIs(t, got, tt.target)
			assert.Contains(t, got.Error(), "op: ")
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapError(nil, "op"))
	})

	t.Run("unknown errors keep the cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		got := WrapError(cause, "list active")
		assert.ErrorIs(t, got, cause)
		assert.False(t, IsNotFound(got))
		assert.NotErrorIs(t, got, ErrDuplicateKey)
	})

	t.Run("other pg codes keep the code", func(t *testing.T) {
		got := WrapError(&pgconn.PgError{Code: "40001"}, "record")
		assert.Contains(t, got.Error(), "[40001]")
	})
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(WrapError(pgx.ErrNoRows, "get")))
	assert.ErrorIs(t, WrapError(&pgconn.PgError{Code: "23505"}, "insert"), ErrDuplicateKey)
	assert.ErrorIs(t, WrapError(&pgconn.PgError{Code: "23503"}, "insert"), ErrForeignKeyViolation)
}
