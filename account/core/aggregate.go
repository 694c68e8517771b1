package core

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an account.
type Status string

const (
	// StatusUninitialized is the state of an account whose stream holds no events yet.
	StatusUninitialized Status = "UNINITIALIZED"

	// StatusOpen is the state of an account after AccountCreated. There is no
	// closed state in this design.
	StatusOpen Status = "OPEN"
)

// NoRevision is the concurrency token of an aggregate whose stream has never
// been appended to. It matches the event store's "stream absent" sentinel.
const NoRevision int64 = -1

// accountState is the portion of the aggregate that events act upon.
type accountState struct {
	owner   string
	balance BalanceAmount
	status  Status
}

// nextState is the single, total transition function over the closed set of
// account events. Replaying history and staging a new event both go through
// it, which guarantees that in-memory state after a save matches what a
// fresh replay of the stream would produce.
func nextState(state accountState, event DomainEvent) accountState {
	switch e := event.(type) {
	case AccountCreated:
		state.owner = e.Owner
		state.balance = e.InitialBalance
		state.status = StatusOpen

	case MoneyDeposited:
		state.balance += e.Amount

	case MoneyWithdrawn:
		state.balance -= e.Amount
	}

	return state
}

// Account is the event-sourced aggregate for one bank account. It is
// constructed fresh per command-handling unit of work, rehydrated by full
// replay, mutated only through its command methods, and discarded after
// persistence.
type Account struct {
	id       uuid.UUID
	state    accountState
	revision int64
	staged   DomainEvents
}

// NewAccount creates an uninitialized aggregate for the given identity, as
// used before the first-ever command against this account.
func NewAccount(id uuid.UUID) *Account {
	return &Account{
		id:       id,
		state:    accountState{status: StatusUninitialized},
		revision: NoRevision,
	}
}

// ReplayAccount rebuilds an aggregate by applying every event of its stream
// in order. lastRevision is the stream revision of the final event in
// history and becomes the aggregate's concurrency token; an empty history
// with NoRevision yields an uninitialized aggregate, which is not an error.
func ReplayAccount(id uuid.UUID, history DomainEvents, lastRevision int64) *Account {
	account := NewAccount(id)

	for _, event := range history {
		account.state = nextState(account.state, event)
	}

	account.revision = lastRevision

	return account
}

// CreateAccount opens the account for an owner with an optional starting
// balance. It fails with ErrAccountAlreadyExists unless the aggregate is
// still uninitialized and with ErrInvalidAmount for a negative starting
// balance.
func (a *Account) CreateAccount(owner string, initialBalance BalanceAmount, occurredAt time.Time) error {
	if a.state.status != StatusUninitialized {
		return ErrAccountAlreadyExists
	}

	if initialBalance < 0 {
		return ErrInvalidAmount
	}

	a.stage(BuildAccountCreated(a.id, owner, initialBalance, occurredAt))

	return nil
}

// DepositMoney adds a positive amount to the balance. It fails with
// ErrAccountNotActive unless the account is open and with ErrInvalidAmount
// for a zero or negative amount.
func (a *Account) DepositMoney(amount BalanceAmount, occurredAt time.Time) error {
	if a.state.status != StatusOpen {
		return ErrAccountNotActive
	}

	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.stage(BuildMoneyDeposited(a.id, amount, occurredAt))

	return nil
}

// WithdrawMoney takes a positive amount from the balance. It fails with
// ErrAccountNotActive unless the account is open, with ErrInvalidAmount for
// a zero or negative amount, and with ErrInsufficientFunds when the balance
// does not cover the amount, so the balance never goes negative.
func (a *Account) WithdrawMoney(amount BalanceAmount, occurredAt time.Time) error {
	if a.state.status != StatusOpen {
		return ErrAccountNotActive
	}

	if amount <= 0 {
		return ErrInvalidAmount
	}

	if a.state.balance < amount {
		return ErrInsufficientFunds
	}

	a.stage(BuildMoneyWithdrawn(a.id, amount, occurredAt))

	return nil
}

// stage applies the event to the in-memory state and records it for the next save.
func (a *Account) stage(event DomainEvent) {
	a.state = nextState(a.state, event)
	a.staged = append(a.staged, event)
}

// StagedEvents returns the events staged since load, in staging order.
func (a *Account) StagedEvents() DomainEvents {
	return a.staged
}

// MarkEventsCommitted clears the staged events and advances the concurrency
// token to the revision returned by the event store after a successful append.
func (a *Account) MarkEventsCommitted(newRevision int64) {
	a.staged = nil
	a.revision = newRevision
}

// ID returns the account identity.
func (a *Account) ID() uuid.UUID {
	return a.id
}

// Owner returns the account owner's name, empty while uninitialized.
func (a *Account) Owner() string {
	return a.state.owner
}

// Balance returns the current balance in minor currency units.
func (a *Account) Balance() BalanceAmount {
	return a.state.balance
}

// Status returns the lifecycle state of the account.
func (a *Account) Status() Status {
	return a.state.status
}

// Revision returns the concurrency token: the stream revision of the last
// event incorporated at load time, advanced on successful saves, or
// NoRevision when the stream does not exist yet.
func (a *Account) Revision() int64 {
	return a.revision
}
