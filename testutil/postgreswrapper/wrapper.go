package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/require"

	"github.com/accountstreams/account-cqrs-go/eventstore/postgresengine"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

const createEventsTableDDL = `
CREATE TABLE IF NOT EXISTS events (
	global_position BIGSERIAL PRIMARY KEY,
	stream_id TEXT NOT NULL,
	stream_revision BIGINT NOT NULL,
	event_type TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	metadata JSONB,
	UNIQUE (stream_id, stream_revision)
)`

// Wrapper abstracts over the different database adapter types under test.
type Wrapper interface {
	GetEventStore() postgresengine.EventStore
	Exec(t testing.TB, statement string)
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
	es   postgresengine.EventStore
}

func (w *PGXPoolWrapper) GetEventStore() postgresengine.EventStore {
	return w.es
}

func (w *PGXPoolWrapper) Exec(t testing.TB, statement string) {
	_, err := w.pool.Exec(context.Background(), statement)
	require.NoError(t, err, "error executing statement in test setup")
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing.
type SQLDBWrapper struct {
	db *sql.DB
	es postgresengine.EventStore
}

func (w *SQLDBWrapper) GetEventStore() postgresengine.EventStore {
	return w.es
}

func (w *SQLDBWrapper) Exec(t testing.TB, statement string) {
	_, err := w.db.Exec(statement)
	require.NoError(t, err, "error executing statement in test setup")
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing.
type SQLXWrapper struct {
	db *sqlx.DB
	es postgresengine.EventStore
}

func (w *SQLXWrapper) GetEventStore() postgresengine.EventStore {
	return w.es
}

func (w *SQLXWrapper) Exec(t testing.TB, statement string) {
	_, err := w.db.Exec(statement)
	require.NoError(t, err, "error executing statement in test setup")
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// TestDSN returns the integration test DSN, skipping the test when it is
// not configured.
func TestDSN(t testing.TB) string {
	dsn := os.Getenv("EVENTSTORE_TEST_DSN")
	if dsn == "" {
		t.Skip("EVENTSTORE_TEST_DSN not set, skipping Postgres integration test")
	}

	return dsn
}

// CreateWrapper connects to the integration test database and builds an
// event store on the adapter selected via ADAPTER_TYPE. It ensures the
// events table exists and truncates it for test isolation.
func CreateWrapper(t testing.TB, options ...postgresengine.Option) Wrapper {
	dsn := TestDSN(t)
	wrapper := createWrapper(t, dsn, options...)

	wrapper.Exec(t, createEventsTableDDL)
	CleanUp(t, wrapper)

	return wrapper
}

func createWrapper(t testing.TB, dsn string, options ...postgresengine.Option) Wrapper {
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.New(context.Background(), dsn)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		es, err := postgresengine.NewEventStoreFromPGXPool(connPool, options...)
		require.NoError(t, err, "error creating event store")

		return &PGXPoolWrapper{pool: connPool, es: es}

	case typeSQLDB:
		db, err := sql.Open("postgres", dsn)
		require.NoError(t, err, "error connecting to DB in test setup")

		es, err := postgresengine.NewEventStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating event store")

		return &SQLDBWrapper{db: db, es: es}

	case typeSQLXDB:
		db, err := sqlx.Open("postgres", dsn)
		require.NoError(t, err, "error connecting to DB in test setup")

		es, err := postgresengine.NewEventStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating event store")

		return &SQLXWrapper{db: db, es: es}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// CleanUp truncates the events table for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	wrapper.Exec(t, "TRUNCATE TABLE events RESTART IDENTITY")
}
