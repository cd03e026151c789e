package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mediflash/mediflash-api/internal/platform/logger"
)

// TxFn is a unit of work that must apply atomically.
type TxFn func(ctx context.Context, tx DBTX) error

// InTx runs fn atomically against db. A *sql.DB gets a fresh transaction via
// RunInTransaction; any other DBTX, typically a caller-owned *sql.Tx, is
// handed to fn as is and committing stays the caller's job.
func InTx(ctx context.Context, db DBTX, fn TxFn) error {
	conn, ok := db.(*sql.DB)
	if !ok {
		return fn(ctx, db)
	}
	return RunInTransaction(ctx, conn, fn)
}

// RunInTransaction executes fn in a new transaction on db and commits it when
// fn returns nil.
//
// Errors from fn are returned unchanged after the rollback, so checks such as
// errors.Is(err, ErrDeckNotFound) keep working; a failed rollback is appended
// to the message. Begin and commit failures wrap ErrTransactionFailed. The
// transaction is also rolled back when fn panics.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrTransactionFailed, err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		rbErr := tx.Rollback()
		if rbErr == nil || errors.Is(rbErr, sql.ErrTxDone) {
			return
		}
		log.Error("failed to roll back transaction", slog.String("error", rbErr.Error()))
		if err != nil {
			err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		log.Debug("rolling back transaction", slog.String("error", err.Error()))
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: failed to commit transaction: %w", ErrTransactionFailed, err)
	}
	return nil
}
