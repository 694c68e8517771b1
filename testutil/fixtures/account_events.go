package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/accountstreams/account-cqrs-go/account/core"
	"github.com/accountstreams/account-cqrs-go/account/shell"
	"github.com/accountstreams/account-cqrs-go/eventstore"
)

// AccountCreated builds a storable AccountCreated event.
func AccountCreated(
	t testing.TB,
	accountID uuid.UUID,
	owner string,
	initialBalance core.BalanceAmount,
	occurredAt time.Time,
) eventstore.StorableEvent {
	event := core.BuildAccountCreated(accountID, owner, initialBalance, occurredAt)

	storable, err := shell.StorableEventWithEmptyMetadataFrom(event)
	require.NoError(t, err, "error building storable event in test setup")

	return storable
}

// MoneyDeposited builds a storable MoneyDeposited event.
func MoneyDeposited(
	t testing.TB,
	accountID uuid.UUID,
	amount core.BalanceAmount,
	occurredAt time.Time,
) eventstore.StorableEvent {
	event := core.BuildMoneyDeposited(accountID, amount, occurredAt)

	storable, err := shell.StorableEventWithEmptyMetadataFrom(event)
	require.NoError(t, err, "error building storable event in test setup")

	return storable
}

// MoneyWithdrawn builds a storable MoneyWithdrawn event.
func MoneyWithdrawn(
	t testing.TB,
	accountID uuid.UUID,
	amount core.BalanceAmount,
	occurredAt time.Time,
) eventstore.StorableEvent {
	event := core.BuildMoneyWithdrawn(accountID, amount, occurredAt)

	storable, err := shell.StorableEventWithEmptyMetadataFrom(event)
	require.NoError(t, err, "error building storable event in test setup")

	return storable
}
