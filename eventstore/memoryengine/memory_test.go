package memoryengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountstreams/account-cqrs-go/account/shell"
	"github.com/accountstreams/account-cqrs-go/eventstore"
	"github.com/accountstreams/account-cqrs-go/eventstore/memoryengine"
	"github.com/accountstreams/account-cqrs-go/testutil/fixtures"
)

func Test_MemoryEngine_ReadStream_EmptyResultForAbsentStream(t *testing.T) {
	// setup
	es := memoryengine.NewEventStore()

	// act
	stream, err := es.ReadStream(context.Background(), shell.StreamIDFor(uuid.New()))

	// assert
	assert.NoError(t, err, "An absent stream should not be an error")
	assert.Empty(t, stream)
}

func Test_MemoryEngine_ReadStream_FailsWithEmptyStreamID(t *testing.T) {
	// setup
	es := memoryengine.NewEventStore()

	// act
	_, err := es.ReadStream(context.Background(), "")

	// assert
	assert.ErrorIs(t, err, eventstore.ErrEmptyStreamID)
}

func Test_MemoryEngine_AppendToStream_AssignsGaplessRevisionsFromZero(t *testing.T) {
	// setup
	ctx := context.Background()
	es := memoryengine.NewEventStore()
	fakeClock := time.Unix(0, 0).UTC()
	accountID := uuid.New()
	streamID := shell.StreamIDFor(accountID)

	// act
	newRevision, err := es.AppendToStream(ctx, streamID, eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock),
		fixtures.MoneyDeposited(t, accountID, 100, fakeClock.Add(time.Minute)),
		fixtures.MoneyWithdrawn(t, accountID, 30, fakeClock.Add(2*time.Minute)),
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, eventstore.StreamRevision(2), newRevision)

	stream, err := es.ReadStream(ctx, streamID)
	require.NoError(t, err)
	require.Len(t, stream, 3)

	for i, event := range stream {
		assert.Equal(t, eventstore.StreamRevision(i), event.StreamRevision, "Revisions should be gapless from zero")
		assert.Equal(t, streamID, event.StreamID)
	}
}

func Test_MemoryEngine_AppendToStream_ConflictOnStaleExpectedRevision(t *testing.T) {
	// setup
	ctx := context.Background()
	es := memoryengine.NewEventStore()
	fakeClock := time.Unix(0, 0).UTC()
	accountID := uuid.New()
	streamID := shell.StreamIDFor(accountID)

	_, err := es.AppendToStream(ctx, streamID, eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock))
	require.NoError(t, err)

	// two writers both loaded the stream at revision 0
	firstRevision, firstErr := es.AppendToStream(ctx, streamID, 0,
		fixtures.MoneyDeposited(t, accountID, 100, fakeClock))

	// act
	_, secondErr := es.AppendToStream(ctx, streamID, 0,
		fixtures.MoneyDeposited(t, accountID, 50, fakeClock))

	// assert
	require.NoError(t, firstErr)
	assert.Equal(t, eventstore.StreamRevision(1), firstRevision)
	assert.ErrorIs(t, secondErr, eventstore.ErrConcurrencyConflict)

	stream, err := es.ReadStream(ctx, streamID)
	require.NoError(t, err)
	assert.Len(t, stream, 2, "The losing append should persist nothing")
}

func Test_MemoryEngine_AppendToStream_ConflictOnFirstAppendToExistingStream(t *testing.T) {
	// setup
	ctx := context.Background()
	es := memoryengine.NewEventStore()
	fakeClock := time.Unix(0, 0).UTC()
	accountID := uuid.New()
	streamID := shell.StreamIDFor(accountID)

	_, err := es.AppendToStream(ctx, streamID, eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock))
	require.NoError(t, err)

	// act
	_, err = es.AppendToStream(ctx, streamID, eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
}

func Test_MemoryEngine_AppendToStream_IsolatesStreams(t *testing.T) {
	// setup
	ctx := context.Background()
	es := memoryengine.NewEventStore()
	fakeClock := time.Unix(0, 0).UTC()
	firstAccountID := uuid.New()
	secondAccountID := uuid.New()

	// act
	_, err := es.AppendToStream(ctx, shell.StreamIDFor(firstAccountID), eventstore.NoStream,
		fixtures.AccountCreated(t, firstAccountID, "Alice", 0, fakeClock))
	require.NoError(t, err)

	newRevision, err := es.AppendToStream(ctx, shell.StreamIDFor(secondAccountID), eventstore.NoStream,
		fixtures.AccountCreated(t, secondAccountID, "Bob", 0, fakeClock))

	// assert
	require.NoError(t, err)
	assert.Equal(t, eventstore.StreamRevision(0), newRevision, "Streams should have independent revisions")
}

func Test_MemoryEngine_SubscribeToAll_DeliversInGlobalOrder(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := memoryengine.NewEventStore()
	fakeClock := time.Unix(0, 0).UTC()
	firstAccountID := uuid.New()
	secondAccountID := uuid.New()

	_, err := es.AppendToStream(ctx, shell.StreamIDFor(firstAccountID), eventstore.NoStream,
		fixtures.AccountCreated(t, firstAccountID, "Alice", 0, fakeClock),
		fixtures.MoneyDeposited(t, firstAccountID, 100, fakeClock))
	require.NoError(t, err)

	_, err = es.AppendToStream(ctx, shell.StreamIDFor(secondAccountID), eventstore.NoStream,
		fixtures.AccountCreated(t, secondAccountID, "Bob", 0, fakeClock))
	require.NoError(t, err)

	// act
	sub := es.SubscribeToAll(ctx, eventstore.GlobalPositionStart)

	var received []eventstore.StoredEvent
	for event := range sub.Events() {
		received = append(received, event)
		if len(received) == 3 {
			cancel()
		}
	}

	// assert
	assert.NoError(t, sub.Err(), "Cancellation should close the subscription cleanly")
	require.Len(t, received, 3)

	for i, event := range received {
		assert.Equal(t, eventstore.GlobalPosition(i+1), event.GlobalPosition, "Events should arrive in global order")
	}
}

func Test_MemoryEngine_SubscribeToAll_ResumesAfterPosition(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := memoryengine.NewEventStore()
	fakeClock := time.Unix(0, 0).UTC()
	accountID := uuid.New()
	streamID := shell.StreamIDFor(accountID)

	_, err := es.AppendToStream(ctx, streamID, eventstore.NoStream,
		fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock),
		fixtures.MoneyDeposited(t, accountID, 100, fakeClock))
	require.NoError(t, err)

	// act: resume after the first event
	sub := es.SubscribeToAll(ctx, 1)

	event := <-sub.Events()
	cancel()

	// assert
	assert.Equal(t, eventstore.GlobalPosition(2), event.GlobalPosition)
	assert.Equal(t, eventstore.StreamRevision(1), event.StreamRevision)
}

func Test_MemoryEngine_SubscribeToAll_WakesUpOnNewAppends(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := memoryengine.NewEventStore()
	fakeClock := time.Unix(0, 0).UTC()
	accountID := uuid.New()

	sub := es.SubscribeToAll(ctx, eventstore.GlobalPositionStart)

	// act: append while the subscriber is idle
	go func() {
		time.Sleep(50 * time.Millisecond)

		_, appendErr := es.AppendToStream(ctx, shell.StreamIDFor(accountID), eventstore.NoStream,
			fixtures.AccountCreated(t, accountID, "Alice", 0, fakeClock))
		assert.NoError(t, appendErr)
	}()

	// assert
	select {
	case event := <-sub.Events():
		assert.Equal(t, eventstore.GlobalPosition(1), event.GlobalPosition)
	case <-ctx.Done():
		t.Fatal("subscriber was not woken up by the append")
	}
}
