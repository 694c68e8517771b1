// Package adapters provides thin wrappers that let the Postgres engine run on
// different database handle types (pgxpool.Pool, sql.DB, sqlx.DB) behind one
// small interface.
package adapters
