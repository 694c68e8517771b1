// Package eventstore provides the core abstractions for event sourcing with
// classic per-stream event streams.
//
// It defines the storage-agnostic types shared by all engine implementations:
//
//   - StorableEvent: an event to be appended, built from scalars so the store
//     stays agnostic of how client code models its domain events
//   - StoredEvent: an event read back from the store, carrying the stream id,
//     the stream revision assigned at append time, and the global position
//   - StreamRevision / NoStream: the optimistic concurrency token; NoStream
//     is the expected revision for the first-ever append to a stream
//   - GlobalPosition: the resumable ordering token of the all-streams feed
//
// Common usage pattern:
//
//	events, err := store.ReadStream(ctx, streamID)
//	// rebuild state, decide, stage new events ...
//	newRevision, err := store.AppendToStream(ctx, streamID, expectedRevision, newEvents...)
//	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
//		// another writer appended in between; reload and retry the whole cycle
//	}
package eventstore
