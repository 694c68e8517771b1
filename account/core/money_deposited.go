package core

import (
	"time"

	"github.com/google/uuid"
)

// MoneyDepositedEventType is the event type identifier.
const MoneyDepositedEventType = "MoneyDeposited"

// MoneyDeposited represents money being added to an account's balance.
type MoneyDeposited struct {
	EventType  EventTypeString
	AccountID  AccountIDString
	Amount     BalanceAmount
	OccurredAt OccurredAtTS
}

// BuildMoneyDeposited creates a new MoneyDeposited event.
func BuildMoneyDeposited(accountID uuid.UUID, amount BalanceAmount, occurredAt time.Time) MoneyDeposited {
	event := MoneyDeposited{
		EventType:  MoneyDepositedEventType,
		AccountID:  accountID.String(),
		Amount:     amount,
		OccurredAt: ToOccurredAt(occurredAt),
	}

	return event
}

// IsEventType returns the event type identifier.
func (e MoneyDeposited) IsEventType() string {
	return MoneyDepositedEventType
}

// HasOccurredAt returns when this event occurred.
func (e MoneyDeposited) HasOccurredAt() time.Time {
	return e.OccurredAt
}
