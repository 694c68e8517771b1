package memoryengine

import (
	"context"
	"sync"

	"github.com/accountstreams/account-cqrs-go/eventstore"
)

// EventStore is an in-memory event store, safe for concurrent use.
//
// The zero value is not usable; construct with NewEventStore.
type EventStore struct {
	mu      sync.RWMutex
	log     []eventstore.StoredEvent
	streams map[eventstore.StreamID][]int
	notify  chan struct{}
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		streams: make(map[eventstore.StreamID][]int),
		notify:  make(chan struct{}),
	}
}

// ReadStream retrieves all events of one stream ordered by stream revision.
// An empty result is a valid outcome, not an error: the stream simply does
// not exist yet.
func (es *EventStore) ReadStream(_ context.Context, streamID eventstore.StreamID) (eventstore.StoredEvents, error) {
	if streamID == "" {
		return nil, eventstore.ErrEmptyStreamID
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	indexes := es.streams[streamID]
	stream := make(eventstore.StoredEvents, 0, len(indexes))

	for _, idx := range indexes {
		stream = append(stream, es.log[idx])
	}

	return stream, nil
}

// AppendToStream atomically appends the given ordered batch of events to one
// stream, but only if the stream's current revision still equals
// expectedRevision. Use eventstore.NoStream as the expected revision for the
// first-ever append to a stream.
//
// On success, it returns the stream's new current revision; on a revision
// mismatch nothing is persisted and eventstore.ErrConcurrencyConflict is
// returned.
func (es *EventStore) AppendToStream(
	_ context.Context,
	streamID eventstore.StreamID,
	expectedRevision eventstore.StreamRevision,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) (eventstore.StreamRevision, error) {

	if streamID == "" {
		return eventstore.NoStream, eventstore.ErrEmptyStreamID
	}

	allEvents := eventstore.StorableEvents{event}
	allEvents = append(allEvents, additionalEvents...)

	es.mu.Lock()
	defer es.mu.Unlock()

	currentRevision := eventstore.NoStream
	if indexes := es.streams[streamID]; len(indexes) > 0 {
		currentRevision = es.log[indexes[len(indexes)-1]].StreamRevision
	}

	if currentRevision != expectedRevision {
		return eventstore.NoStream, eventstore.ErrConcurrencyConflict
	}

	for i, storable := range allEvents {
		stored := eventstore.BuildStoredEvent(
			storable,
			streamID,
			expectedRevision+eventstore.StreamRevision(i+1),
			eventstore.GlobalPosition(len(es.log)+1),
		)

		es.log = append(es.log, stored)
		es.streams[streamID] = append(es.streams[streamID], len(es.log)-1)
	}

	// wake up waiting subscribers
	close(es.notify)
	es.notify = make(chan struct{})

	return expectedRevision + eventstore.StreamRevision(len(allEvents)), nil
}

// SubscribeToAll starts a subscription delivering every event across all
// streams with a global position greater than afterPosition, in global
// position order. Cancel the context to stop consuming; the subscription
// closes with a nil Err.
func (es *EventStore) SubscribeToAll(ctx context.Context, afterPosition eventstore.GlobalPosition) *eventstore.Subscription {
	sub := eventstore.NewSubscription()

	go es.runSubscription(ctx, sub, afterPosition)

	return sub
}

func (es *EventStore) runSubscription(ctx context.Context, sub *eventstore.Subscription, afterPosition eventstore.GlobalPosition) {
	position := afterPosition

	for {
		batch, notify := es.readAllAfter(position)

		for _, event := range batch {
			if !sub.Deliver(ctx, event) {
				sub.Close(nil)
				return
			}

			position = event.GlobalPosition
		}

		if len(batch) == 0 {
			select {
			case <-notify:
			case <-ctx.Done():
				sub.Close(nil)
				return
			}
		}
	}
}

// readAllAfter returns all events after the given position plus the channel
// that will be closed on the next append, so an idle subscriber can wait
// without polling.
func (es *EventStore) readAllAfter(position eventstore.GlobalPosition) (eventstore.StoredEvents, chan struct{}) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var batch eventstore.StoredEvents
	if int(position) < len(es.log) {
		batch = append(batch, es.log[position:]...)
	}

	return batch, es.notify
}
