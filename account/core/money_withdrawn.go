package core

import (
	"time"

	"github.com/google/uuid"
)

// MoneyWithdrawnEventType is the event type identifier.
const MoneyWithdrawnEventType = "MoneyWithdrawn"

// MoneyWithdrawn represents money being taken from an account's balance.
type MoneyWithdrawn struct {
	EventType  EventTypeString
	AccountID  AccountIDString
	Amount     BalanceAmount
	OccurredAt OccurredAtTS
}

// BuildMoneyWithdrawn creates a new MoneyWithdrawn event.
func BuildMoneyWithdrawn(accountID uuid.UUID, amount BalanceAmount, occurredAt time.Time) MoneyWithdrawn {
	event := MoneyWithdrawn{
		EventType:  MoneyWithdrawnEventType,
		AccountID:  accountID.String(),
		Amount:     amount,
		OccurredAt: ToOccurredAt(occurredAt),
	}

	return event
}

// IsEventType returns the event type identifier.
func (e MoneyWithdrawn) IsEventType() string {
	return MoneyWithdrawnEventType
}

// HasOccurredAt returns when this event occurred.
func (e MoneyWithdrawn) HasOccurredAt() time.Time {
	return e.OccurredAt
}
