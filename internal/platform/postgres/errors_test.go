package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		expectedErr error
		expectedMsg string
	}{
		{name: "nil_error", err: nil, expectedErr: nil},
		{name: "sql_no_rows", err: sql.ErrNoRows, expectedErr: store.ErrNotFound},
		{
			name:        "unique_violation",
			err:         &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "decks_pkey"},
			expectedErr: store.ErrDuplicate,
		},
		{
			name:        "foreign_key_violation",
			err:         &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "cards_deck_id_fkey"},
			expectedErr: store.ErrInvalidEntity,
			expectedMsg: "cards_deck_id_fkey",
		},
		{
			name:        "check_violation",
			err:         &pgconn.PgError{Code: checkViolationCode, ConstraintName: "cards_ease_check"},
			expectedErr: store.ErrInvalidEntity,
			expectedMsg: "check constraint violation",
		},
		{
			name:        "not_null_violation",
			err:         &pgconn.PgError{Code: notNullViolationCode, ColumnName: "question"},
			expectedErr: store.ErrInvalidEntity,
			expectedMsg: "question",
		},
		{
			name:        "unmapped_error",
			err:         errors.New("connection reset by peer"),
			expectedErr: store.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.expectedErr == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.expectedErr)
			if tt.expectedMsg != "" {
				assert.Contains(t, got.Error(), tt.expectedMsg)
			}
		})
	}
}

func TestViolationHelpers(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: uniqueViolationCode}
	fk := &pgconn.PgError{Code: foreignKeyViolationCode}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckRowsAffected(sqlmock.NewResult(0, 1), store.ErrDeckNotFound))

	err := CheckRowsAffected(sqlmock.NewResult(0, 0), store.ErrDeckNotFound)
	assert.ErrorIs(t, err, store.ErrDeckNotFound)

	err = CheckRowsAffected(sqlmock.NewResult(0, 0), nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = CheckRowsAffected(sqlmock.NewErrorResult(errors.New("driver gone")), nil)
	assert.ErrorIs(t, err, store.ErrInternal)

	assert.Error(t, CheckRowsAffected(nil, nil))
}
