// Package core contains the pure domain model for bank accounts: the domain
// events, the Account aggregate state machine, and the domain errors.
//
// Nothing in this package performs I/O. Rebuilding an aggregate from history
// and advancing it when staging a new event go through the same apply
// function, so the in-memory state after a save always matches what a fresh
// replay of the stream would produce.
package core
