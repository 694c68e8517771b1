// Package accounts maintains the denormalized account read model.
//
// The Projector is a long-lived consumer of the all-streams feed: it resumes
// from its durably recorded checkpoint, filters events belonging to the
// account stream namespace, and applies each one to the read store with
// event-kind-specific, idempotent SQL. Duplicate or out-of-order delivery is
// neutralized by first-write-wins inserts and version-guarded updates, so
// at-least-once redelivery never double-applies an event.
package accounts
