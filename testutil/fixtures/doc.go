// Package fixtures provides account event builders for tests that feed
// storable events directly into an event store.
package fixtures
