// Package shell connects the pure domain in account/core to the event store:
// stream id derivation, mapping between domain events and storable events,
// event metadata, and the load-apply-save repository for the Account
// aggregate.
package shell
