// Package memoryengine provides an in-memory implementation of the
// eventstore contract with the same semantics as the Postgres engine:
// gapless zero-based stream revisions, compare-and-append concurrency
// control, and a globally ordered all-streams subscription.
//
// It is intended for unit tests and local runs; nothing is persisted.
package memoryengine
