package shell

import (
	"context"

	"github.com/google/uuid"

	"github.com/accountstreams/account-cqrs-go/account/core"
	"github.com/accountstreams/account-cqrs-go/eventstore"
)

// EventStore defines the interface the Repository needs for event store operations.
type EventStore interface {
	ReadStream(ctx context.Context, streamID eventstore.StreamID) (eventstore.StoredEvents, error)
	AppendToStream(
		ctx context.Context,
		streamID eventstore.StreamID,
		expectedRevision eventstore.StreamRevision,
		event eventstore.StorableEvent,
		additionalEvents ...eventstore.StorableEvent,
	) (eventstore.StreamRevision, error)
}

// Repository loads and saves Account aggregates against the event store.
// It carries no state besides the store handle and is safe for concurrent use.
type Repository struct {
	eventStore EventStore
}

// NewRepository creates a Repository on top of the given event store.
func NewRepository(eventStore EventStore) Repository {
	return Repository{eventStore: eventStore}
}

// Load rehydrates the aggregate for accountID by replaying its full stream.
// An absent stream is not an error: the returned aggregate is simply
// uninitialized, carrying the "no stream" concurrency token.
func (r Repository) Load(ctx context.Context, accountID uuid.UUID) (*core.Account, error) {
	storedEvents, err := r.eventStore.ReadStream(ctx, StreamIDFor(accountID))
	if err != nil {
		return nil, err
	}

	history, err := DomainEventsFrom(storedEvents)
	if err != nil {
		return nil, err
	}

	lastRevision := core.NoRevision
	if len(storedEvents) > 0 {
		lastRevision = storedEvents[len(storedEvents)-1].StreamRevision
	}

	return core.ReplayAccount(accountID, history, lastRevision), nil
}

// Save appends the aggregate's staged events to its stream, using the
// concurrency token captured at load time as the expected current revision.
//
// With nothing staged, Save is a no-op. On eventstore.ErrConcurrencyConflict
// nothing is persisted; the caller must discard the aggregate and redo the
// whole load-apply-save cycle.
func (r Repository) Save(ctx context.Context, account *core.Account) error {
	staged := account.StagedEvents()
	if len(staged) == 0 {
		return nil
	}

	messageID := uuid.New()
	metadata := BuildEventMetadata(messageID, messageID, messageID)

	storableEvents := make(eventstore.StorableEvents, 0, len(staged))
	for _, event := range staged {
		storableEvent, marshalErr := StorableEventFrom(event, metadata)
		if marshalErr != nil {
			return marshalErr
		}

		storableEvents = append(storableEvents, storableEvent)
	}

	newRevision, appendErr := r.eventStore.AppendToStream(
		ctx,
		StreamIDFor(account.ID()),
		account.Revision(),
		storableEvents[0],
		storableEvents[1:]...,
	)
	if appendErr != nil {
		return appendErr
	}

	account.MarkEventsCommitted(newRevision)

	return nil
}
