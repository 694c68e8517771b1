package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/accountstreams/account-cqrs-go/account/core"
)

const (
	createAccountCommandType = "CreateAccount"
	depositMoneyCommandType  = "DepositMoney"
	withdrawMoneyCommandType = "WithdrawMoney"
)

// Command is the closed set of account commands. The unexported marker
// method keeps the set closed to this package, so the dispatcher's type
// switch covers every variant that can exist.
type Command interface {
	CommandType() string
	isCommand()
}

// CreateAccount represents the intent to open a new account for an owner,
// optionally with a starting balance.
type CreateAccount struct {
	Owner          string
	InitialBalance core.BalanceAmount
	OccurredAt     core.OccurredAtTS
}

// BuildCreateAccount creates a new CreateAccount command.
func BuildCreateAccount(owner string, initialBalance core.BalanceAmount, occurredAt time.Time) CreateAccount {
	return CreateAccount{
		Owner:          owner,
		InitialBalance: initialBalance,
		OccurredAt:     core.ToOccurredAt(occurredAt),
	}
}

// CommandType returns the type identifier for this command, used for logging and routing.
func (c CreateAccount) CommandType() string {
	return createAccountCommandType
}

func (c CreateAccount) isCommand() {}

// DepositMoney represents the intent to add money to an existing account.
type DepositMoney struct {
	AccountID  uuid.UUID
	Amount     core.BalanceAmount
	OccurredAt core.OccurredAtTS
}

// BuildDepositMoney creates a new DepositMoney command.
func BuildDepositMoney(accountID uuid.UUID, amount core.BalanceAmount, occurredAt time.Time) DepositMoney {
	return DepositMoney{
		AccountID:  accountID,
		Amount:     amount,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}

// CommandType returns the type identifier for this command, used for logging and routing.
func (c DepositMoney) CommandType() string {
	return depositMoneyCommandType
}

func (c DepositMoney) isCommand() {}

// WithdrawMoney represents the intent to take money from an existing account.
type WithdrawMoney struct {
	AccountID  uuid.UUID
	Amount     core.BalanceAmount
	OccurredAt core.OccurredAtTS
}

// BuildWithdrawMoney creates a new WithdrawMoney command.
func BuildWithdrawMoney(accountID uuid.UUID, amount core.BalanceAmount, occurredAt time.Time) WithdrawMoney {
	return WithdrawMoney{
		AccountID:  accountID,
		Amount:     amount,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}

// CommandType returns the type identifier for this command, used for logging and routing.
func (c WithdrawMoney) CommandType() string {
	return withdrawMoneyCommandType
}

func (c WithdrawMoney) isCommand() {}
