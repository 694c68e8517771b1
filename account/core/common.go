package core

import (
	"time"
)

// Instead of implementing full value objects, I'm using some alias types and helper methods here ...

// EventTypeString represents an event type identifier.
type EventTypeString = string

// AccountIDString represents an account identifier.
type AccountIDString = string

// BalanceAmount represents a monetary amount in minor currency units (cents).
type BalanceAmount = int64

// OccurredAtTS represents when an event occurred.
type OccurredAtTS = time.Time

// ToOccurredAt converts a time to OccurredAtTS with UTC normalization and microsecond precision.
func ToOccurredAt(t time.Time) OccurredAtTS {
	return t.UTC().Truncate(time.Microsecond)
}
