package core

import "errors"

var (
	// ErrAccountAlreadyExists is returned when creating an account whose stream already holds events.
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrAccountNotActive is returned when depositing to or withdrawing from an account that is not open.
	ErrAccountNotActive = errors.New("account is not active")

	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when a withdrawal would make the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds for this transaction")
)
