package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/accountstreams/account-cqrs-go/eventstore"
	"github.com/accountstreams/account-cqrs-go/eventstore/postgresengine/internal/adapters"
)

const (
	defaultEventTableName        = "events"
	defaultPollInterval          = 200 * time.Millisecond
	defaultSubscriptionBatchSize = 100

	logMsgBuildSelectQueryFailed   = "failed to build select query"
	logMsgDBQueryFailed            = "database query execution failed"
	logMsgCloseRowsFailed          = "failed to close database rows"
	logMsgScanRowFailed            = "failed to scan database row"
	logMsgBuildStorableEventFailed = "failed to build storable event from database row"
	logMsgBuildInsertQueryFailed   = "failed to build insert query"
	logMsgDBExecFailed             = "database execution failed during event append"
	logMsgRowsAffectedFailed       = "failed to get rows affected count"
	logMsgStreamRead               = "stream read"
	logMsgEventsAppended           = "events appended"
	logMsgConcurrencyConflict      = "concurrency conflict detected"
	logMsgSQLExecuted              = "executed sql for: "
	logMsgOperation                = "eventstore operation: "

	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrStreamID         = "stream_id"
	logAttrEventType        = "event_type"
	logAttrEventCount       = "event_count"
	logAttrDurationMS       = "duration_ms"
	logAttrExpectedEvents   = "expected_events"
	logAttrRowsAffected     = "rows_affected"
	logAttrExpectedRevision = "expected_revision"

	logActionReadStream = "read stream"
	logActionReadAll    = "read all"
	logActionAppend     = "append"

	colStreamID       = "stream_id"
	colStreamRevision = "stream_revision"
	colGlobalPosition = "global_position"
	colEventType      = "event_type"
	colOccurredAt     = "occurred_at"
	colPayload        = "payload"
	colMetadata       = "metadata"

	cteStreamHead     = "stream_head"
	aliasHeadRevision = "head_revision"
	dialectPostgres   = "postgres"
	castText          = "?::text"
	castBigint        = "?::bigint"
	castTimestamp     = "?::timestamp with time zone"
	castJsonb         = "?::jsonb"

	pgCodeUniqueViolation = "23505"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// Logger interface for SQL query logging, operational metrics, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// EventStore is a PostgreSQL-backed event store with classic per-stream
// event streams: ordered stream reads, compare-and-append with an expected
// stream revision, and a resumable, globally ordered all-streams feed.
type EventStore struct {
	db                    adapters.DBAdapter
	eventTableName        string
	logger                Logger
	pollInterval          time.Duration
	subscriptionBatchSize uint
}

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithTableName sets the events table name for the EventStore.
func WithTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.eventTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Event counts, durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger
		return nil
	}
}

// WithPollInterval sets the idle wait between polls of the all-streams feed
// when a subscription has caught up with the head of the log.
func WithPollInterval(interval time.Duration) Option {
	return func(es *EventStore) error {
		if interval <= 0 {
			return ErrInvalidPollInterval
		}

		es.pollInterval = interval

		return nil
	}
}

// WithSubscriptionBatchSize sets how many events a subscription fetches per poll.
func WithSubscriptionBatchSize(size uint) Option {
	return func(es *EventStore) error {
		if size == 0 {
			return ErrInvalidSubscriptionBatchSize
		}

		es.subscriptionBatchSize = size

		return nil
	}
}

var (
	// ErrInvalidPollInterval is returned when a non-positive poll interval is configured.
	ErrInvalidPollInterval = errors.New("poll interval must be positive")

	// ErrInvalidSubscriptionBatchSize is returned when a zero subscription batch size is configured.
	ErrInvalidSubscriptionBatchSize = errors.New("subscription batch size must be positive")
)

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), options...)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), options...)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), options...)
}

func newEventStore(db adapters.DBAdapter, options ...Option) (EventStore, error) {
	es := EventStore{
		db:                    db,
		eventTableName:        defaultEventTableName,
		pollInterval:          defaultPollInterval,
		subscriptionBatchSize: defaultSubscriptionBatchSize,
	}

	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	return es, nil
}

// ReadStream retrieves all events of one stream ordered by stream revision,
// from revision 0 up to the current end of the stream.
//
// An empty result is a valid outcome, not an error: the stream simply does
// not exist yet.
func (es EventStore) ReadStream(ctx context.Context, streamID eventstore.StreamID) (eventstore.StoredEvents, error) {
	var empty eventstore.StoredEvents

	if streamID == "" {
		return empty, eventstore.ErrEmptyStreamID
	}

	sqlQuery, buildQueryErr := es.buildReadStreamQuery(streamID)
	if buildQueryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildSelectQueryFailed, logAttrError, buildQueryErr.Error())
		}
		return empty, buildQueryErr
	}

	rows, duration, queryErr := es.executeQuery(ctx, sqlQuery, logActionReadStream)
	if queryErr != nil {
		return empty, queryErr
	}
	defer es.closeRows(rows)

	stream, scanErr := es.scanStoredEvents(rows)
	if scanErr != nil {
		return empty, scanErr
	}

	es.logOperation(
		logMsgStreamRead,
		logAttrStreamID, streamID,
		logAttrEventCount, len(stream),
		logAttrDurationMS, es.durationToMilliseconds(duration))

	return stream, nil
}

// ReadAllAfter retrieves up to limit events across all streams with a global
// position greater than the given one, ordered by global position. It is the
// catch-up primitive behind SubscribeToAll.
func (es EventStore) ReadAllAfter(
	ctx context.Context,
	position eventstore.GlobalPosition,
	limit uint,
) (eventstore.StoredEvents, error) {

	var empty eventstore.StoredEvents

	sqlQuery, buildQueryErr := es.buildReadAllAfterQuery(position, limit)
	if buildQueryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildSelectQueryFailed, logAttrError, buildQueryErr.Error())
		}
		return empty, buildQueryErr
	}

	rows, _, queryErr := es.executeQuery(ctx, sqlQuery, logActionReadAll)
	if queryErr != nil {
		return empty, queryErr
	}
	defer es.closeRows(rows)

	return es.scanStoredEvents(rows)
}

// AppendToStream atomically appends the given ordered batch of events to one
// stream, but only if the stream's current revision still equals
// expectedRevision. Use eventstore.NoStream as the expected revision for the
// first-ever append to a stream.
//
// On success, it returns the stream's new current revision. On a revision
// mismatch nothing is persisted and eventstore.ErrConcurrencyConflict is
// returned; the caller must reload and redo its whole load-apply-save cycle.
func (es EventStore) AppendToStream(
	ctx context.Context,
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

	sqlQuery, buildQueryErr := es.buildAppendQuery(streamID, allEvents, expectedRevision)
	if buildQueryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildInsertQueryFailed, logAttrError, buildQueryErr.Error(), logAttrEventCount, len(allEvents))
		}

		return eventstore.NoStream, buildQueryErr
	}

	rowsAffected, duration, execErr := es.executeAppendQuery(ctx, sqlQuery)
	if execErr != nil {
		if isUniqueViolation(execErr) {
			// Two writers passed the revision guard in parallel; the unique
			// index on (stream_id, stream_revision) decides the race.
			es.logConcurrencyConflict(streamID, expectedRevision, len(allEvents), 0)
			return eventstore.NoStream, eventstore.ErrConcurrencyConflict
		}

		return eventstore.NoStream, execErr
	}

	if rowsAffected < int64(len(allEvents)) {
		es.logConcurrencyConflict(streamID, expectedRevision, len(allEvents), rowsAffected)
		return eventstore.NoStream, eventstore.ErrConcurrencyConflict
	}

	newRevision := expectedRevision + eventstore.StreamRevision(len(allEvents))

	es.logOperation(
		logMsgEventsAppended,
		logAttrStreamID, streamID,
		logAttrEventCount, len(allEvents),
		logAttrDurationMS, es.durationToMilliseconds(duration),
	)

	return newRevision, nil
}

// executeQuery executes the SQL query and returns rows with timing information.
func (es EventStore) executeQuery(ctx context.Context, sqlQuery string, action string) (
	adapters.DBRows,
	time.Duration,
	error,
) {

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, action, duration)

	if queryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return nil, duration, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}

	return rows, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (es EventStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if es.logger != nil {
			es.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// scanStoredEvents converts database rows into stored events.
func (es EventStore) scanStoredEvents(rows adapters.DBRows) (eventstore.StoredEvents, error) {
	var empty eventstore.StoredEvents

	var (
		streamID       string
		streamRevision int64
		globalPosition int64
		eventType      string
		occurredAt     time.Time
		payload        []byte
		metadata       []byte
	)

	stream := make(eventstore.StoredEvents, 0)

	for rows.Next() {
		rowScanErr := rows.Scan(&streamID, &streamRevision, &globalPosition, &eventType, &occurredAt, &payload, &metadata)
		if rowScanErr != nil {
			if es.logger != nil {
				es.logger.Error(logMsgScanRowFailed, logAttrError, rowScanErr.Error())
			}

			return empty, errors.Join(eventstore.ErrScanningDBRowFailed, rowScanErr)
		}

		event, buildStorableErr := eventstore.BuildStorableEvent(eventType, occurredAt, payload, metadata)
		if buildStorableErr != nil {
			if es.logger != nil {
				es.logger.Error(logMsgBuildStorableEventFailed, logAttrError, buildStorableErr.Error(), logAttrEventType, eventType)
			}

			return empty, errors.Join(eventstore.ErrBuildingStorableEventFailed, buildStorableErr)
		}

		stream = append(stream, eventstore.BuildStoredEvent(event, streamID, streamRevision, globalPosition))
	}

	return stream, nil
}

// executeAppendQuery executes the SQL append query and returns rows affected and duration.
func (es EventStore) executeAppendQuery(ctx context.Context, sqlQuery string) (
	rowsAffectedInt64,
	queryDuration,
	error,
) {

	start := time.Now()
	tag, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, logActionAppend, duration)

	if execErr != nil {
		if es.logger != nil && !isUniqueViolation(execErr) {
			es.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		}

		return 0, duration, errors.Join(eventstore.ErrAppendingEventFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := tag.RowsAffected()
	if rowsAffectedErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		}

		return 0, duration, errors.Join(eventstore.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, duration, nil
}

func (es EventStore) buildReadStreamQuery(streamID eventstore.StreamID) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(colStreamID, colStreamRevision, colGlobalPosition, colEventType, colOccurredAt, colPayload, colMetadata).
		Where(goqu.Ex{colStreamID: streamID}).
		Order(goqu.I(colStreamRevision).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) buildReadAllAfterQuery(position eventstore.GlobalPosition, limit uint) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(colStreamID, colStreamRevision, colGlobalPosition, colEventType, colOccurredAt, colPayload, colMetadata).
		Where(goqu.C(colGlobalPosition).Gt(position)).
		Order(goqu.I(colGlobalPosition).Asc()).
		Limit(limit)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// buildAppendQuery builds a guarded insert: a CTE selects the stream's
// current head revision, and each inserted row carries the revision it must
// get if and only if the head still equals the expected revision. The insert
// affects zero rows when another writer moved the head in between.
func (es EventStore) buildAppendQuery(
	streamID eventstore.StreamID,
	allEvents eventstore.StorableEvents,
	expectedRevision eventstore.StreamRevision,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.COALESCE(goqu.MAX(colStreamRevision), goqu.V(eventstore.NoStream)).As(aliasHeadRevision)).
		Where(goqu.Ex{colStreamID: streamID})

	branches := make([]*goqu.SelectDataset, len(allEvents))
	for i, event := range allEvents {
		branches[i] = builder.
			From(cteStreamHead).
			Select(
				goqu.L(castText, streamID).As(colStreamID),
				goqu.L(castBigint, expectedRevision+eventstore.StreamRevision(i+1)).As(colStreamRevision),
				goqu.L(castText, event.EventType).As(colEventType),
				goqu.L(castTimestamp, event.OccurredAt).As(colOccurredAt),
				goqu.L(castJsonb, event.PayloadJSON).As(colPayload),
				goqu.L(castJsonb, event.MetadataJSON).As(colMetadata),
			).
			Where(goqu.C(aliasHeadRevision).Eq(goqu.V(expectedRevision)))
	}

	valuesStmt := branches[0]
	for i := 1; i < len(branches); i++ {
		valuesStmt = valuesStmt.UnionAll(branches[i])
	}

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colStreamID, colStreamRevision, colEventType, colOccurredAt, colPayload, colMetadata).
		FromQuery(valuesStmt).
		With(cteStreamHead, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// isUniqueViolation reports whether the error is a Postgres unique constraint
// violation, surfaced either by pgx or by lib/pq depending on the adapter.
func isUniqueViolation(err error) bool {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgCodeUniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgCodeUniqueViolation
	}

	return false
}

func (es EventStore) logConcurrencyConflict(
	streamID eventstore.StreamID,
	expectedRevision eventstore.StreamRevision,
	expectedEventCount int,
	rowsAffected int64,
) {

	es.logOperation(
		logMsgConcurrencyConflict,
		logAttrStreamID, streamID,
		logAttrExpectedRevision, expectedRevision,
		logAttrExpectedEvents, expectedEventCount,
		logAttrRowsAffected, rowsAffected,
	)
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (es EventStore) logQueryWithDuration(
	sqlQuery string,
	action string,
	duration time.Duration,
) {

	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, es.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (es EventStore) logOperation(action string, args ...any) {
	if es.logger != nil {
		es.logger.Info(logMsgOperation+action, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (es EventStore) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
