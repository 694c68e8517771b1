package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountstreams/account-cqrs-go/eventstore"
	"github.com/accountstreams/account-cqrs-go/projection/accounts"
	"github.com/accountstreams/account-cqrs-go/testutil/postgreswrapper"
)

func Test_NewReadStore_FailsWithNilConnection(t *testing.T) {
	// act
	_, err := accounts.NewReadStore(nil)

	// assert
	assert.ErrorIs(t, err, accounts.ErrNilDatabaseConnection)
}

func Test_NewReadStore_FailsWithEmptyTableName(t *testing.T) {
	// setup
	db := &sqlx.DB{}

	// act + assert
	_, err := accounts.NewReadStore(db, accounts.WithAccountsTableName(""))
	assert.ErrorIs(t, err, accounts.ErrEmptyTableName)

	_, err = accounts.NewReadStore(db, accounts.WithCheckpointsTableName(""))
	assert.ErrorIs(t, err, accounts.ErrEmptyTableName)
}

func setupReadStore(t *testing.T) (context.Context, accounts.ReadStore, func()) {
	t.Helper()

	dsn := postgreswrapper.TestDSN(t)

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err, "error connecting to DB in test setup")

	readStore, err := accounts.NewReadStore(db)
	require.NoError(t, err, "error creating read store")

	require.NoError(t, readStore.EnsureSchema(ctxWithTimeout))

	_, err = db.ExecContext(ctxWithTimeout, "TRUNCATE TABLE accounts, projection_checkpoints")
	require.NoError(t, err, "error cleaning up the read model tables")

	cleanup := func() {
		cancel()
		_ = db.Close()
	}

	return ctxWithTimeout, readStore, cleanup
}

func Test_ReadStore_CreateAccountIfAbsent_IsIdempotent(t *testing.T) {
	// setup
	ctx, readStore, cleanup := setupReadStore(t)
	defer cleanup()

	accountID := uuid.New()

	// act
	require.NoError(t, readStore.CreateAccountIfAbsent(ctx, accountID, "Alice", 100, 0))

	// a redelivered create must not reset the row
	require.NoError(t, readStore.ApplyBalanceChange(ctx, accountID, 50, 1))
	require.NoError(t, readStore.CreateAccountIfAbsent(ctx, accountID, "Alice", 100, 0))

	// assert
	rows, err := readStore.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(150), rows[0].Balance)
	assert.Equal(t, int64(1), rows[0].Version)
}

func Test_ReadStore_ApplyBalanceChange_IgnoresStaleRevisions(t *testing.T) {
	// setup
	ctx, readStore, cleanup := setupReadStore(t)
	defer cleanup()

	accountID := uuid.New()
	require.NoError(t, readStore.CreateAccountIfAbsent(ctx, accountID, "Alice", 0, 0))
	require.NoError(t, readStore.ApplyBalanceChange(ctx, accountID, 100, 1))

	// act: redelivery of the already-applied deposit
	require.NoError(t, readStore.ApplyBalanceChange(ctx, accountID, 100, 1))

	// assert
	rows, err := readStore.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].Balance, "A stale revision must not change the balance")
}

func Test_ReadStore_ListAccounts_OrdersByOwner(t *testing.T) {
	// setup
	ctx, readStore, cleanup := setupReadStore(t)
	defer cleanup()

	require.NoError(t, readStore.CreateAccountIfAbsent(ctx, uuid.New(), "Mallory", 0, 0))
	require.NoError(t, readStore.CreateAccountIfAbsent(ctx, uuid.New(), "Alice", 0, 0))
	require.NoError(t, readStore.CreateAccountIfAbsent(ctx, uuid.New(), "Bob", 0, 0))

	// act
	rows, err := readStore.ListAccounts(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Alice", rows[0].Owner)
	assert.Equal(t, "Bob", rows[1].Owner)
	assert.Equal(t, "Mallory", rows[2].Owner)
}

func Test_ReadStore_Checkpoint_DefaultsToStartAndUpserts(t *testing.T) {
	// setup
	ctx, readStore, cleanup := setupReadStore(t)
	defer cleanup()

	// act + assert: no checkpoint recorded yet
	position, err := readStore.Checkpoint(ctx, accounts.ProjectorName)
	require.NoError(t, err)
	assert.Equal(t, eventstore.GlobalPositionStart, position)

	// act + assert: save and overwrite
	require.NoError(t, readStore.SaveCheckpoint(ctx, accounts.ProjectorName, 10))
	require.NoError(t, readStore.SaveCheckpoint(ctx, accounts.ProjectorName, 25))

	position, err = readStore.Checkpoint(ctx, accounts.ProjectorName)
	require.NoError(t, err)
	assert.Equal(t, eventstore.GlobalPosition(25), position)
}
