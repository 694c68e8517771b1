package eventstore

import (
	"errors"
)

var (
	// ErrConcurrencyConflict is returned by AppendToStream when the stream's
	// current revision does not match the expected revision, meaning another
	// writer appended in between. Nothing was persisted; the caller must
	// reload and redo the whole load-apply-save cycle.
	ErrConcurrencyConflict = errors.New("concurrency conflict, stream revision did not match the expected revision")

	// ErrEmptyStreamID is returned when an empty stream id is supplied.
	ErrEmptyStreamID = errors.New("empty stream id supplied")

	// ErrEmptyEventsTableName is returned when an empty events table name is configured.
	ErrEmptyEventsTableName = errors.New("empty events table name supplied")

	// ErrNilDatabaseConnection is returned when a nil database handle is supplied to an engine factory.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrQueryingEventsFailed is returned when reading events from the store fails.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrAppendingEventFailed is returned when appending events to the store fails.
	ErrAppendingEventFailed = errors.New("appending events failed")

	// ErrScanningDBRowFailed is returned when scanning a database row fails.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrBuildingQueryFailed is returned when SQL query construction fails.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrGettingRowsAffectedFailed is returned when the affected row count cannot be determined.
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")

	// ErrBuildingStorableEventFailed is returned when a database row cannot be turned into a StorableEvent.
	ErrBuildingStorableEventFailed = errors.New("building storable event failed")
)
