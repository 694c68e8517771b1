package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/accountstreams/account-cqrs-go/eventstore"
)

const (
	defaultAccountsTableName    = "accounts"
	defaultCheckpointsTableName = "projection_checkpoints"

	colID        = "id"
	colOwner     = "owner"
	colBalance   = "balance"
	colVersion   = "version"
	colProjector = "projector"
	colPosition  = "position"

	dialectPostgres = "postgres"
)

var (
	// ErrNilDatabaseConnection is returned when a nil sqlx handle is supplied.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is configured.
	ErrEmptyTableName = errors.New("empty table name supplied")

	// ErrBuildingQueryFailed is returned when SQL query construction fails.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrReadStoreQueryFailed is returned when a read store query fails.
	ErrReadStoreQueryFailed = errors.New("read store query failed")

	// ErrReadStoreExecFailed is returned when a read store write fails.
	ErrReadStoreExecFailed = errors.New("read store execution failed")
)

// AccountRow is one account snapshot in the read model. Version mirrors the
// stream revision of the last event applied to this row; it is an internal
// idempotency counter, not a user-facing field.
type AccountRow struct {
	ID      uuid.UUID `db:"id"      json:"id"`
	Owner   string    `db:"owner"   json:"owner"`
	Balance int64     `db:"balance" json:"balance"`
	Version int64     `db:"version" json:"-"`
}

// ReadStore is the Postgres-backed account read model: one row per account,
// updated in place by the Projector and queried by read clients.
type ReadStore struct {
	db               *sqlx.DB
	accountsTable    string
	checkpointsTable string
}

// ReadStoreOption defines a functional option for configuring ReadStore.
type ReadStoreOption func(*ReadStore) error

// WithAccountsTableName sets the accounts table name.
func WithAccountsTableName(tableName string) ReadStoreOption {
	return func(rs *ReadStore) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		rs.accountsTable = tableName

		return nil
	}
}

// WithCheckpointsTableName sets the projection checkpoints table name.
func WithCheckpointsTableName(tableName string) ReadStoreOption {
	return func(rs *ReadStore) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		rs.checkpointsTable = tableName

		return nil
	}
}

// NewReadStore creates a ReadStore using a sqlx.DB with optional configuration.
func NewReadStore(db *sqlx.DB, options ...ReadStoreOption) (ReadStore, error) {
	if db == nil {
		return ReadStore{}, ErrNilDatabaseConnection
	}

	rs := ReadStore{
		db:               db,
		accountsTable:    defaultAccountsTableName,
		checkpointsTable: defaultCheckpointsTableName,
	}

	for _, option := range options {
		if err := option(&rs); err != nil {
			return ReadStore{}, err
		}
	}

	return rs, nil
}

// EnsureSchema creates the read model tables if they do not exist yet.
func (rs ReadStore) EnsureSchema(ctx context.Context) error {
	accountsDDL := `CREATE TABLE IF NOT EXISTS ` + rs.accountsTable + ` (
		id UUID PRIMARY KEY,
		owner TEXT NOT NULL,
		balance BIGINT NOT NULL,
		version BIGINT NOT NULL
	)`

	checkpointsDDL := `CREATE TABLE IF NOT EXISTS ` + rs.checkpointsTable + ` (
		projector TEXT PRIMARY KEY,
		position BIGINT NOT NULL
	)`

	if _, err := rs.db.ExecContext(ctx, accountsDDL); err != nil {
		return errors.Join(ErrReadStoreExecFailed, err)
	}

	if _, err := rs.db.ExecContext(ctx, checkpointsDDL); err != nil {
		return errors.Join(ErrReadStoreExecFailed, err)
	}

	return nil
}

// CreateAccountIfAbsent inserts the row for a newly created account. If a row
// with that id already exists the insert is a no-op: first write wins, so
// duplicate delivery of AccountCreated cannot produce a second row or reset
// an existing one.
func (rs ReadStore) CreateAccountIfAbsent(
	ctx context.Context,
	accountID uuid.UUID,
	owner string,
	balance int64,
	version int64,
) error {

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(rs.accountsTable).
		Cols(colID, colOwner, colBalance, colVersion).
		Vals(goqu.Vals{accountID.String(), owner, balance, version}).
		OnConflict(goqu.DoNothing())

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	if _, err := rs.db.ExecContext(ctx, sqlQuery); err != nil {
		return errors.Join(ErrReadStoreExecFailed, err)
	}

	return nil
}

// ApplyBalanceChange adjusts an account's balance by delta and advances the
// row's version to the given stream revision, but only when the stored
// version is still below it. A redelivered or out-of-order event fails the
// guard and the update is skipped, so every revision changes the balance at
// most once.
func (rs ReadStore) ApplyBalanceChange(
	ctx context.Context,
	accountID uuid.UUID,
	delta int64,
	version int64,
) error {

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(rs.accountsTable).
		Set(goqu.Record{
			colBalance: goqu.L("? + ?", goqu.C(colBalance), delta),
			colVersion: version,
		}).
		Where(
			goqu.C(colID).Eq(accountID.String()),
			goqu.C(colVersion).Lt(version),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	if _, err := rs.db.ExecContext(ctx, sqlQuery); err != nil {
		return errors.Join(ErrReadStoreExecFailed, err)
	}

	return nil
}

// ListAccounts returns all account rows ordered by owner name.
func (rs ReadStore) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(rs.accountsTable).
		Select(colID, colOwner, colBalance, colVersion).
		Order(goqu.I(colOwner).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows := make([]AccountRow, 0)
	if err := rs.db.SelectContext(ctx, &rows, sqlQuery); err != nil {
		return nil, errors.Join(ErrReadStoreQueryFailed, err)
	}

	return rows, nil
}

// Checkpoint returns the durably recorded position of the named projector,
// or eventstore.GlobalPositionStart when it has never checkpointed.
func (rs ReadStore) Checkpoint(ctx context.Context, projector string) (eventstore.GlobalPosition, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(rs.checkpointsTable).
		Select(colPosition).
		Where(goqu.C(colProjector).Eq(projector))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return eventstore.GlobalPositionStart, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	var position int64
	err := rs.db.GetContext(ctx, &position, sqlQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return eventstore.GlobalPositionStart, nil
	}
	if err != nil {
		return eventstore.GlobalPositionStart, errors.Join(ErrReadStoreQueryFailed, err)
	}

	return position, nil
}

// SaveCheckpoint durably records the position of the named projector.
func (rs ReadStore) SaveCheckpoint(ctx context.Context, projector string, position eventstore.GlobalPosition) error {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(rs.checkpointsTable).
		Cols(colProjector, colPosition).
		Vals(goqu.Vals{projector, position}).
		OnConflict(goqu.DoUpdate(colProjector, goqu.Record{colPosition: position}))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	if _, err := rs.db.ExecContext(ctx, sqlQuery); err != nil {
		return errors.Join(ErrReadStoreExecFailed, err)
	}

	return nil
}
