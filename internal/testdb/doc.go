//go:build integration

// Package testdb provides helpers for integration tests against a real
// PostgreSQL database.
//
// Tests run inside a transaction that is rolled back when the test ends, so
// they can run in parallel and need no cleanup:
//
//	func TestMyFeature(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        jobs := postgres.NewPostgresJobStore(tx, nil)
//	        ...
//	    })
//	}
//
// The database URL is read from DATABASE_URL, falling back to
// BULKGEN_TEST_DB_URL. Tests are skipped when neither is set.
package testdb
