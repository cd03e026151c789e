package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mediflash/mediflash-api/internal/store"
)

// SQLSTATE codes of the integrity violations the schema can raise.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// violation describes how one SQLSTATE code is reported.
type violation struct {
	sentinel error
	label    string
	// subject picks the constraint or column named in the message
	subject func(*pgconn.PgError) string
}

func constraintName(e *pgconn.PgError) string { return e.ConstraintName }

var violations = map[string]violation{
	uniqueViolationCode:     {store.ErrDuplicate, "unique violation", constraintName},
	foreignKeyViolationCode: {store.ErrInvalidEntity, "foreign key violation", constraintName},
	checkViolationCode:      {store.ErrInvalidEntity, "check constraint violation", constraintName},
	notNullViolationCode: {store.ErrInvalidEntity, "not null violation", func(e *pgconn.PgError) string {
		return e.ColumnName
	}},
}

// MapError translates a driver error into the store error taxonomy.
// sql.ErrNoRows becomes store.ErrNotFound and integrity violations become
// store.ErrDuplicate or store.ErrInvalidEntity. Anything else wraps
// store.ErrInternal so that driver details stay out of API responses.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	if pgErr := asPgError(err); pgErr != nil {
		if v, ok := violations[pgErr.Code]; ok {
			return fmt.Errorf("%w: %s (%s): %v", v.sentinel, v.label, v.subject(pgErr), err)
		}
	}
	return fmt.Errorf("%w: %v", store.ErrInternal, err)
}

func asPgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

func hasCode(err error, code string) bool {
	pgErr := asPgError(err)
	return pgErr != nil && pgErr.Code == code
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool { return hasCode(err, uniqueViolationCode) }

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool { return hasCode(err, foreignKeyViolationCode) }

// CheckRowsAffected turns an UPDATE or DELETE that touched no rows into
// notFound, or store.ErrNotFound when notFound is nil.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("check rows affected: nil result")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", store.ErrInternal, err)
	}
	if n > 0 {
		return nil
	}
	if notFound == nil {
		return store.ErrNotFound
	}
	return notFound
}
