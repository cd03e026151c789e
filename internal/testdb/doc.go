// Package testdb provides helpers for integration tests that need a real
// Postgres or Redis server.
//
// Connection settings come from environment variables. When a variable is
// unset the calling test is skipped, unless MEDIFLASH_REQUIRE_INTEGRATION is
// set, in which case it fails instead. Postgres tests run inside a transaction
// that is rolled back when the test completes, so they can share one database
// and run in parallel:
//
//	func TestSomething(t *testing.T) {
//	    db := openMigrated(t, testdb.PostgresURL(t))
//	    tx := testdb.BeginTx(t, db)
//	    store := NewPostgresDeckStore(tx, nil)
//	    ...
//	}
package testdb
