// Package postgres provides the PostgreSQL implementations of the deck and
// progress stores defined in internal/store, together with the embedded goose
// migrations for the schema they use. Connections go through database/sql with
// the pgx stdlib driver.
package postgres
