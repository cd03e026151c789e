package testdb

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/mediflash/mediflash-api/internal/redact"
)

const pingTimeout = 5 * time.Second

// BeginTx starts a transaction on db that is rolled back when t completes.
// It fails t if the database is unreachable.
func BeginTx(t testing.TB, db *sql.DB) *sql.Tx {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("database connection failed before transaction: %s", redact.Error(err))
	}

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %s", redact.Error(err))
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back test transaction: %s", redact.Error(err))
		}
	})
	return tx
}

// WithTx runs fn inside a transaction that is rolled back when t completes.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()
	fn(t, BeginTx(t, db))
}
