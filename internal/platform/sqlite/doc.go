// Package sqlite provides embedded, single-file implementations of the deck
// and progress stores on top of modernc.org/sqlite. It backs the local CLI and
// deployments that do not run PostgreSQL.
//
// Timestamps are stored as fixed-width UTC text so that lexical comparison in
// SQL matches chronological order.
package sqlite
