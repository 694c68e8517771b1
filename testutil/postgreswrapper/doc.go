// Package postgreswrapper provides test utilities for Postgres event store
// testing with multi-adapter support.
//
// Integration tests are skipped unless EVENTSTORE_TEST_DSN is set. The
// ADAPTER_TYPE environment variable selects the database adapter under test
// (pgx.pool, sql.db, sqlx.db); it defaults to pgx.pool.
package postgreswrapper
