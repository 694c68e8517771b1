// Package config loads process configuration from environment variables and
// builds the database handles the processes run on: a pgx pool for the event
// store and a sqlx handle for the read store.
package config
