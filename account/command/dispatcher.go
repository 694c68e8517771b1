package command

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/accountstreams/account-cqrs-go/account/core"
	"github.com/accountstreams/account-cqrs-go/account/shell"
)

// ErrUnregisteredCommand is returned when Dispatch receives a command variant
// it has no handler for. This is a programming error, not a business
// condition; it can only happen when a new variant is added without
// extending the dispatch table.
var ErrUnregisteredCommand = errors.New("no handler registered for command")

// Dispatcher routes each command variant to exactly one handler. Each
// handled command runs as its own load-apply-save unit of work against a
// fresh aggregate; the Dispatcher never retries on its own.
type Dispatcher struct {
	repository shell.Repository
}

// NewDispatcher creates a Dispatcher on top of the given repository.
func NewDispatcher(repository shell.Repository) Dispatcher {
	return Dispatcher{repository: repository}
}

// Dispatch executes the command and returns the identity of the affected account.
// For CreateAccount that identity is freshly generated; for the mutating
// commands it echoes the targeted account.
//
// Domain errors from the aggregate and eventstore.ErrConcurrencyConflict
// from the save are propagated unchanged.
func (d Dispatcher) Dispatch(ctx context.Context, cmd Command) (uuid.UUID, error) {
	switch c := cmd.(type) {
	case CreateAccount:
		return d.handleCreateAccount(ctx, c)

	case DepositMoney:
		return c.AccountID, d.handleDepositMoney(ctx, c)

	case WithdrawMoney:
		return c.AccountID, d.handleWithdrawMoney(ctx, c)

	default:
		return uuid.Nil, ErrUnregisteredCommand
	}
}

// handleCreateAccount constructs a brand-new identity and a fresh aggregate;
// there is no stream to load yet.
func (d Dispatcher) handleCreateAccount(ctx context.Context, cmd CreateAccount) (uuid.UUID, error) {
	accountID := uuid.New()
	account := core.NewAccount(accountID)

	if err := account.CreateAccount(cmd.Owner, cmd.InitialBalance, cmd.OccurredAt); err != nil {
		return uuid.Nil, err
	}

	if err := d.repository.Save(ctx, account); err != nil {
		return uuid.Nil, err
	}

	return accountID, nil
}

func (d Dispatcher) handleDepositMoney(ctx context.Context, cmd DepositMoney) error {
	account, err := d.repository.Load(ctx, cmd.AccountID)
	if err != nil {
		return err
	}

	if err = account.DepositMoney(cmd.Amount, cmd.OccurredAt); err != nil {
		return err
	}

	return d.repository.Save(ctx, account)
}

func (d Dispatcher) handleWithdrawMoney(ctx context.Context, cmd WithdrawMoney) error {
	account, err := d.repository.Load(ctx, cmd.AccountID)
	if err != nil {
		return err
	}

	if err = account.WithdrawMoney(cmd.Amount, cmd.OccurredAt); err != nil {
		return err
	}

	return d.repository.Save(ctx, account)
}
