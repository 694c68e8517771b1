package accounts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountstreams/account-cqrs-go/account/shell"
	"github.com/accountstreams/account-cqrs-go/eventstore"
	"github.com/accountstreams/account-cqrs-go/eventstore/memoryengine"
	"github.com/accountstreams/account-cqrs-go/projection/accounts"
	"github.com/accountstreams/account-cqrs-go/testutil/fixtures"
)

// readModelDouble is an in-memory ReadModel with the same idempotency
// semantics as the Postgres read store.
type readModelDouble struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]accounts.AccountRow
	checkpoints map[string]eventstore.GlobalPosition
}

func newReadModelDouble() *readModelDouble {
	return &readModelDouble{
		rows:        make(map[uuid.UUID]accounts.AccountRow),
		checkpoints: make(map[string]eventstore.GlobalPosition),
	}
}

func (d *readModelDouble) CreateAccountIfAbsent(
	_ context.Context, accountID uuid.UUID, owner string, balance int64, version int64,
) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.rows[accountID]; exists {
		return nil
	}

	d.rows[accountID] = accounts.AccountRow{ID: accountID, Owner: owner, Balance: balance, Version: version}

	return nil
}

func (d *readModelDouble) ApplyBalanceChange(
	_ context.Context, accountID uuid.UUID, delta int64, version int64,
) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	row, exists := d.rows[accountID]
	if !exists || row.Version >= version {
		return nil
	}

	row.Balance += delta
	row.Version = version
	d.rows[accountID] = row

	return nil
}

func (d *readModelDouble) Checkpoint(_ context.Context, projector string) (eventstore.GlobalPosition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.checkpoints[projector], nil
}

func (d *readModelDouble) SaveCheckpoint(_ context.Context, projector string, position eventstore.GlobalPosition) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.checkpoints[projector] = position

	return nil
}

func (d *readModelDouble) row(accountID uuid.UUID) (accounts.AccountRow, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	row, exists := d.rows[accountID]

	return row, exists
}

func (d *readModelDouble) rowCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.rows)
}

func runProjectorUntil(t *testing.T, es *memoryengine.EventStore, readModel *readModelDouble, condition func() bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	projector := accounts.NewProjector(es, readModel)

	done := make(chan error, 1)
	go func() {
		done <- projector.Run(ctx)
	}()

	require.Eventually(t, condition, 3*time.Second, 5*time.Millisecond, "projector did not reach the expected state")

	cancel()
	require.NoError(t, <-done, "cancellation should be a clean shutdown")
}

func Test_Projector_ProjectsCreateDepositWithdraw(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(0, 0).UTC()
	es := memoryengine.NewEventStore()
	readModel := newReadModelDouble()
	accountID := uuid.New()

	_, err := es.AppendToStream(ctx, shell.StreamIDFor(accountID), eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock),
		fixtures.MoneyDeposited(t, accountID, 100, fakeClock.Add(time.Minute)),
		fixtures.MoneyWithdrawn(t, accountID, 30, fakeClock.Add(2*time.Minute)),
	)
	require.NoError(t, err)

	// act
	runProjectorUntil(t, es, readModel, func() bool {
		row, exists := readModel.row(accountID)
		return exists && row.Version == 2
	})

	// assert
	row, _ := readModel.row(accountID)
	assert.Equal(t, "Alice", row.Owner)
	assert.Equal(t, int64(70), row.Balance)
	assert.Equal(t, int64(2), row.Version)

	checkpoint, err := readModel.Checkpoint(ctx, accounts.ProjectorName)
	require.NoError(t, err)
	assert.Equal(t, eventstore.GlobalPosition(3), checkpoint, "Checkpoint should track the last applied event")
}

func Test_Projector_RedeliveryIsIdempotent(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(0, 0).UTC()
	es := memoryengine.NewEventStore()
	readModel := newReadModelDouble()
	accountID := uuid.New()

	_, err := es.AppendToStream(ctx, shell.StreamIDFor(accountID), eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock),
		fixtures.MoneyDeposited(t, accountID, 100, fakeClock),
	)
	require.NoError(t, err)

	runProjectorUntil(t, es, readModel, func() bool {
		row, exists := readModel.row(accountID)
		return exists && row.Version == 1
	})

	// act: force redelivery of the whole feed from position zero
	require.NoError(t, readModel.SaveCheckpoint(ctx, accounts.ProjectorName, eventstore.GlobalPositionStart))

	runProjectorUntil(t, es, readModel, func() bool {
		checkpoint, checkpointErr := readModel.Checkpoint(ctx, accounts.ProjectorName)
		return checkpointErr == nil && checkpoint == 2
	})

	// assert
	row, _ := readModel.row(accountID)
	assert.Equal(t, int64(100), row.Balance, "Re-applied events must not double-count")
	assert.Equal(t, int64(1), row.Version)
}

func Test_Projector_IgnoresForeignStreams(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(0, 0).UTC()
	es := memoryengine.NewEventStore()
	readModel := newReadModelDouble()
	accountID := uuid.New()

	foreignEvent, err := eventstore.BuildStorableEvent("OrderPlaced", fakeClock, []byte(`{}`), []byte(`{}`))
	require.NoError(t, err)

	_, err = es.AppendToStream(ctx, "order-"+uuid.NewString(), eventstore.NoStream, foreignEvent)
	require.NoError(t, err)

	_, err = es.AppendToStream(ctx, shell.StreamIDFor(accountID), eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock))
	require.NoError(t, err)

	// act
	runProjectorUntil(t, es, readModel, func() bool {
		_, exists := readModel.row(accountID)
		return exists
	})

	// assert
	assert.Equal(t, 1, readModel.rowCount(), "Only account streams should be projected")
}

func Test_Projector_SkipsUndecodableEventAndContinues(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(0, 0).UTC()
	es := memoryengine.NewEventStore()
	readModel := newReadModelDouble()
	accountID := uuid.New()

	bogusEvent, err := eventstore.BuildStorableEvent("AccountFrozen", fakeClock, []byte(`{}`), []byte(`{}`))
	require.NoError(t, err)

	_, err = es.AppendToStream(ctx, shell.StreamIDFor(accountID), eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock),
		bogusEvent,
		fixtures.MoneyDeposited(t, accountID, 100, fakeClock),
	)
	require.NoError(t, err)

	// act
	runProjectorUntil(t, es, readModel, func() bool {
		row, exists := readModel.row(accountID)
		return exists && row.Balance == 100
	})

	// assert
	row, _ := readModel.row(accountID)
	assert.Equal(t, int64(2), row.Version, "Events after the skipped one should still be applied")
}

func Test_Projector_ResumesFromCheckpoint(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(0, 0).UTC()
	es := memoryengine.NewEventStore()
	readModel := newReadModelDouble()
	accountID := uuid.New()

	_, err := es.AppendToStream(ctx, shell.StreamIDFor(accountID), eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock),
		fixtures.MoneyDeposited(t, accountID, 100, fakeClock),
	)
	require.NoError(t, err)

	// the create event was already applied in a previous run
	require.NoError(t, readModel.CreateAccountIfAbsent(ctx, accountID, "Alice", 0, 0))
	require.NoError(t, readModel.SaveCheckpoint(ctx, accounts.ProjectorName, 1))

	// act
	runProjectorUntil(t, es, readModel, func() bool {
		row, exists := readModel.row(accountID)
		return exists && row.Version == 1
	})

	// assert
	row, _ := readModel.row(accountID)
	assert.Equal(t, int64(100), row.Balance)
}
