package eventstore

// StreamID identifies one event stream, typically derived from an aggregate
// identity with a namespace prefix (e.g. "bankAccount-<uuid>").
type StreamID = string

// StreamRevision is the zero-based, strictly increasing and gapless sequence
// number of an event within its own stream. It doubles as the optimistic
// concurrency token: AppendToStream only succeeds when the stream's current
// revision equals the expected one.
type StreamRevision = int64

// NoStream is the distinguished StreamRevision for a stream that does not
// exist yet. It is the expected revision of a first-ever append and the
// concurrency token of an aggregate whose stream has never been written.
const NoStream StreamRevision = -1

// GlobalPosition is the ordering token of an event within the all-streams
// subscription feed. Consumers persist it as their resumable checkpoint.
type GlobalPosition = int64

// GlobalPositionStart is the position to subscribe from to receive every
// event ever appended.
const GlobalPositionStart GlobalPosition = 0

// StoredEvents is an alias type for a slice of StoredEvent.
type StoredEvents = []StoredEvent

// StoredEvent is an event read back from the store. It wraps the client
// supplied StorableEvent with the storage-assigned coordinates: the stream it
// belongs to, its revision within that stream, and its global position.
type StoredEvent struct {
	StorableEvent
	StreamID       StreamID
	StreamRevision StreamRevision
	GlobalPosition GlobalPosition
}

// BuildStoredEvent is a factory method for StoredEvent.
func BuildStoredEvent(
	event StorableEvent,
	streamID StreamID,
	streamRevision StreamRevision,
	globalPosition GlobalPosition,
) StoredEvent {

	return StoredEvent{
		StorableEvent:  event,
		StreamID:       streamID,
		StreamRevision: streamRevision,
		GlobalPosition: globalPosition,
	}
}
