// Package postgresengine provides a PostgreSQL implementation of the
// eventstore contract with classic per-stream event streams.
//
// Events live in a single table with a bigserial global position and a
// per-stream revision. Appends are guarded by a CTE that reads the stream's
// current head revision; a unique index on (stream_id, stream_revision)
// backs the guard under concurrent writers. The all-streams feed is a
// polling subscription ordered by global position.
//
// Key features:
//   - Multiple database adapter support (pgxpool, sql.DB, sqlx.DB)
//   - Atomic compare-and-append with concurrency conflict detection
//   - Gapless, zero-based stream revisions assigned at append time
//   - Cancellable, resumable all-streams subscription (at-least-once)
//   - Configurable table name, poll interval, batch size, and logging
//
// Usage example:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewEventStoreFromPGXPool(db)
//
//	events, _ := store.ReadStream(ctx, streamID)
//	newRevision, err := store.AppendToStream(ctx, streamID, expectedRevision, newEvent)
//
//	sub := store.SubscribeToAll(ctx, checkpoint)
//	for event := range sub.Events() {
//		// project event, persist checkpoint
//	}
//	if err := sub.Err(); err != nil {
//		// subscription failure is fatal; restart and resume from checkpoint
//	}
package postgresengine
