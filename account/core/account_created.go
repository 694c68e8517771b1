package core

import (
	"time"

	"github.com/google/uuid"
)

// AccountCreatedEventType is the event type identifier.
const AccountCreatedEventType = "AccountCreated"

// AccountCreated represents the opening of a new account for an owner.
type AccountCreated struct {
	EventType      EventTypeString
	AccountID      AccountIDString
	Owner          string
	InitialBalance BalanceAmount
	OccurredAt     OccurredAtTS
}

// BuildAccountCreated creates a new AccountCreated event.
func BuildAccountCreated(accountID uuid.UUID, owner string, initialBalance BalanceAmount, occurredAt time.Time) AccountCreated {
	event := AccountCreated{
		EventType:      AccountCreatedEventType,
		AccountID:      accountID.String(),
		Owner:          owner,
		InitialBalance: initialBalance,
		OccurredAt:     ToOccurredAt(occurredAt),
	}

	return event
}

// IsEventType returns the event type identifier.
func (e AccountCreated) IsEventType() string {
	return AccountCreatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e AccountCreated) HasOccurredAt() time.Time {
	return e.OccurredAt
}
